package journal

import (
	"github.com/roach88/vecstore/internal/memory"
)

// Run is a journaled script execution.
type Run struct {
	ID     string       `json:"id"`
	Seq    int64        `json:"seq"`
	Script string       `json:"script"`
	Pass   bool         `json:"pass"`
	Errors []string     `json:"errors"`
	Memory memory.Stats `json:"memory"`
}

// Step is one journaled trace event of a run.
type Step struct {
	Seq      int    `json:"seq"`
	Op       string `json:"op"`
	Store    string `json:"store"`
	Index    *int   `json:"index,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
	Length   int    `json:"length"`
	Capacity int    `json:"capacity"`
}
