package script

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/vecstore/internal/config"
	"github.com/roach88/vecstore/internal/handle"
	"github.com/roach88/vecstore/internal/memory"
	"github.com/roach88/vecstore/internal/vector"
)

// Option configures a run.
type Option func(*runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConfig sets the base configuration. Script-level config is merged
// on top of it.
func WithConfig(cfg config.Config) Option {
	return func(r *runner) {
		r.base = cfg
	}
}

// WithGenerator sets the handle generator. Defaults to a sequential
// generator so traces are reproducible.
func WithGenerator(g handle.Generator) Option {
	return func(r *runner) {
		r.gen = g
	}
}

type runner struct {
	logger *slog.Logger
	base   config.Config
	gen    handle.Generator

	cfg     config.Config
	alloc   *memory.Counter
	table   *handle.Table
	handles map[string]handle.Handle
}

// Run executes a script against fresh stores and returns the result.
//
// Every run gets its own handle table and allocator. Stores the script
// leaves live are freed at the end; the allocator must then report no live
// buffers, otherwise the result fails with a leak error.
//
// Run returns an error only when the run cannot start: the script fails
// Validate (wrapped in ErrInvalid) or the merged config is invalid. Failed
// expectations are reported in Result.Errors.
func Run(s *Script, opts ...Option) (*Result, error) {
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	r := &runner{
		logger:  slog.Default(),
		base:    config.Default(),
		handles: make(map[string]handle.Handle),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.gen == nil {
		r.gen = &handle.SequentialGenerator{}
	}

	r.cfg = r.base.Merge(s.Config)
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	r.alloc = memory.NewCounter(r.cfg.Allocator())
	r.table = handle.NewTable(r.gen)

	r.logger.Debug("script starting", "script", s.Name, "steps", len(s.Steps))

	result := NewResult(s.Name)
	for i, step := range s.Steps {
		ev := r.execute(step)
		ev.Seq = i + 1
		for _, msg := range check(step, ev) {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, step.Op, step.Store, msg))
		}
		r.logger.Debug("step executed",
			"seq", ev.Seq,
			"op", ev.Op,
			"store", ev.Store,
			"code", ev.Code,
			"length", ev.Length,
			"capacity", ev.Capacity,
		)
		result.Trace = append(result.Trace, ev)
	}

	r.table.Close()
	result.Memory = r.alloc.Stats()
	if result.Memory.Live != 0 {
		result.AddError(fmt.Sprintf("leaked %d buffers (%d bytes)", result.Memory.Live, result.Memory.Bytes))
	}

	r.logger.Info("script finished", "script", s.Name, "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

func (r *runner) execute(step Step) TraceEvent {
	ev := TraceEvent{Op: step.Op, Store: step.Store, Index: step.Index}

	var err error
	switch step.Op {
	case OpInit:
		var h handle.Handle
		h, err = r.table.Create(r.cfg.StoreOptions(r.alloc)...)
		if err == nil {
			r.handles[step.Store] = h
		}
	case OpFree:
		err = r.table.Free(r.handles[step.Store])
	default:
		var s *vector.Store
		s, err = r.table.Lookup(r.handles[step.Store])
		if err == nil {
			err = apply(s, step, &ev)
		}
	}

	ev.Code = CodeOK
	if err != nil {
		ev.Code = string(vector.CodeOf(err))
		if ev.Code == "" {
			ev.Code = CodeError
		}
		ev.Message = err.Error()
	}

	if s, lerr := r.table.Lookup(r.handles[step.Store]); lerr == nil {
		ev.Length = s.Len()
		ev.Capacity = s.Cap()
	}
	return ev
}

func apply(s *vector.Store, step Step, ev *TraceEvent) error {
	switch step.Op {
	case OpPushBack:
		return s.PushBack(payload(step.Value, step.Hex))
	case OpPopBack:
		return s.PopBack()
	case OpGet:
		ev.setElement(s.Get(*step.Index))
	case OpFront:
		ev.setElement(s.Front())
	case OpEnd:
		ev.setElement(s.End())
	case OpSet:
		return s.Set(*step.Index, payload(step.Value, step.Hex))
	case OpInsert:
		return s.Insert(*step.Index, payload(step.Value, step.Hex))
	case OpErase:
		return s.Erase(*step.Index)
	case OpClear:
		return s.Clear()
	case OpSize:
		n := s.Len()
		ev.Size = &n
	case OpJoin:
		txt, err := s.Join(step.Separator)
		if err != nil {
			return err
		}
		ev.Text = &txt
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// payload converts a step's value to bytes. Text is NFC-normalized at this
// boundary so visually identical scripts store identical bytes.
func payload(value, hexValue *string) []byte {
	if value != nil {
		return []byte(norm.NFC.String(*value))
	}
	if hexValue != nil {
		b, _ := hex.DecodeString(*hexValue)
		return b
	}
	return nil
}

// check compares a trace event against the step's expectations.
func check(step Step, ev TraceEvent) []string {
	var errs []string
	exp := step.Expect
	if exp == nil {
		exp = &Expect{}
	}

	want := exp.Error
	if want == "" {
		want = CodeOK
	}
	if ev.Code != want {
		if exp.Error == "" {
			errs = append(errs, fmt.Sprintf("unexpected error: %s", ev.Message))
		} else {
			errs = append(errs, fmt.Sprintf("expected error %s, got %s", exp.Error, ev.Code))
		}
	}

	if exp.Found != nil {
		switch {
		case ev.Found == nil:
			errs = append(errs, "no lookup result")
		case *ev.Found != *exp.Found:
			errs = append(errs, fmt.Sprintf("expected found=%t, got %t", *exp.Found, *ev.Found))
		}
	}

	if exp.Value != nil || exp.Hex != nil {
		wantBytes := payload(exp.Value, exp.Hex)
		switch {
		case ev.Found == nil || !*ev.Found:
			errs = append(errs, fmt.Sprintf("expected element %q, got none", wantBytes))
		case !bytes.Equal(ev.data, wantBytes):
			errs = append(errs, fmt.Sprintf("expected element %q, got %q", wantBytes, ev.data))
		}
	}

	if exp.Size != nil && ev.Length != *exp.Size {
		errs = append(errs, fmt.Sprintf("expected size %d, got %d", *exp.Size, ev.Length))
	}
	if exp.Capacity != nil && ev.Capacity != *exp.Capacity {
		errs = append(errs, fmt.Sprintf("expected capacity %d, got %d", *exp.Capacity, ev.Capacity))
	}

	if exp.Text != nil {
		switch {
		case ev.Text == nil:
			errs = append(errs, fmt.Sprintf("expected text %q, got none", *exp.Text))
		case *ev.Text != *exp.Text:
			errs = append(errs, fmt.Sprintf("expected text %q, got %q", *exp.Text, *ev.Text))
		}
	}
	return errs
}
