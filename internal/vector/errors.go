package vector

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeAllocation indicates backing memory could not be obtained.
	ErrCodeAllocation ErrorCode = "ALLOCATION_FAILED"

	// ErrCodeIndex indicates an index outside [0, length), including a pop
	// from an empty store.
	ErrCodeIndex ErrorCode = "INDEX_OUT_OF_RANGE"

	// ErrCodeInvalidHandle indicates an operation on a nil or freed store.
	ErrCodeInvalidHandle ErrorCode = "INVALID_HANDLE"

	// ErrCodeNotText indicates an element that cannot be rendered as text.
	ErrCodeNotText ErrorCode = "NOT_TEXT"
)

// Sentinels for use with errors.Is. Any *Error with the same Code matches.
var (
	ErrAllocation    = &Error{Code: ErrCodeAllocation}
	ErrIndex         = &Error{Code: ErrCodeIndex}
	ErrInvalidHandle = &Error{Code: ErrCodeInvalidHandle}
	ErrNotText       = &Error{Code: ErrCodeNotText}
)

// Error is returned by every failing store operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "push_back").
	Op string

	// Index is the offending index for INDEX_OUT_OF_RANGE and NOT_TEXT.
	Index int

	// Length is the store length at the time of the failure.
	Length int

	// Err is the underlying cause, if any (e.g. memory.ErrExhausted).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = fmt.Sprintf("vector: %s: %s", e.Op, e.Code)
	}
	switch e.Code {
	case ErrCodeIndex:
		if e.Op != "" {
			msg += fmt.Sprintf(" (index=%d, length=%d)", e.Index, e.Length)
		}
	case ErrCodeNotText:
		if e.Op != "" {
			msg += fmt.Sprintf(" (index=%d)", e.Index)
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a
// store error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func indexError(op string, index, length int) *Error {
	return &Error{Code: ErrCodeIndex, Op: op, Index: index, Length: length}
}

func allocError(op string, length int, cause error) *Error {
	return &Error{Code: ErrCodeAllocation, Op: op, Length: length, Err: cause}
}

func invalidHandle(op string) *Error {
	return &Error{Code: ErrCodeInvalidHandle, Op: op}
}
