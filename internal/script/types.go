package script

import (
	"encoding/hex"
	"unicode/utf8"

	"github.com/roach88/vecstore/internal/memory"
)

// CodeOK is the trace code of a step that did not fail.
const CodeOK = "OK"

// CodeError is the trace code of a failure that carries no store error code.
const CodeError = "ERROR"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq   int    `json:"seq"`
	Op    string `json:"op"`
	Store string `json:"store"`
	Index *int   `json:"index,omitempty"`

	// Code is CodeOK or the store error code.
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`

	// Found, Value and Hex report lookups. Value is used when the element
	// is valid UTF-8, Hex otherwise.
	Found *bool   `json:"found,omitempty"`
	Value *string `json:"value,omitempty"`
	Hex   *string `json:"hex,omitempty"`

	// Size is reported by the size op.
	Size *int `json:"size,omitempty"`

	// Text is the output of join.
	Text *string `json:"text,omitempty"`

	// Length and Capacity are read after the step. Both are zero when the
	// store is not live.
	Length   int `json:"length"`
	Capacity int `json:"capacity"`

	data []byte
}

func (e *TraceEvent) setElement(b []byte, ok bool) {
	e.Found = &ok
	if !ok {
		return
	}
	e.data = append([]byte(nil), b...)
	if utf8.Valid(b) {
		v := string(b)
		e.Value = &v
		return
	}
	h := hex.EncodeToString(b)
	e.Hex = &h
}

// Result is the outcome of a script execution.
type Result struct {
	// Script is the script name.
	Script string `json:"script"`

	// Pass is true if every step met its expectations and nothing leaked.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Memory is the allocator state after every store was torn down.
	Memory memory.Stats `json:"memory"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Script: name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
