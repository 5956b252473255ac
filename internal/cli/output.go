package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a script failed or did not validate
	ExitCommandError = 2 // the command could not do its work
)

// ExitError carries the exit code a command ends with. Its output has
// already been written by the command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// failuref is the ExitFailure error for scripts that ran or loaded but
// did not pass.
func failuref(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf(format, args...)}
}

// GetExitCode maps a command error to a process exit code: nil is
// ExitSuccess, an ExitError anywhere in the chain supplies its own code,
// anything else (cobra usage and flag errors) is ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

const (
	statusOK    = "ok"
	statusError = "error"
)

// Envelope is the document every command writes with --format json.
type Envelope struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *EnvelopeError `json:"error,omitempty"`
}

// EnvelopeError names the E-code of a failed command.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// reporter writes command results to out and debug lines to diag, so
// that JSON on stdout stays parseable under --verbose.
type reporter struct {
	json    bool
	verbose bool
	out     io.Writer
	diag    io.Writer
}

func newReporter(opts *RootOptions, cmd *cobra.Command) *reporter {
	return &reporter{
		json:    opts.Format == "json",
		verbose: opts.Verbose,
		out:     cmd.OutOrStdout(),
		diag:    cmd.ErrOrStderr(),
	}
}

// ok writes data in an "ok" envelope.
func (r *reporter) ok(data any) error {
	return r.envelope(Envelope{Status: statusOK, Data: data})
}

// fail writes data in an "error" envelope carrying code.
func (r *reporter) fail(code, message string, data any) error {
	return r.envelope(Envelope{
		Status: statusError,
		Data:   data,
		Error:  &EnvelopeError{Code: code, Message: message},
	})
}

// abort reports a command error under code and returns the
// ExitCommandError that ends the command.
func (r *reporter) abort(code, message string, err error) error {
	if r.json {
		_ = r.fail(code, message, nil)
	} else {
		fmt.Fprintf(r.out, "Error [%s]: %s\n", code, message)
	}
	return &ExitError{Code: ExitCommandError, Message: message, Err: err}
}

func (r *reporter) envelope(e Envelope) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// debugf writes a line to diag in verbose mode.
func (r *reporter) debugf(format string, args ...any) {
	if r.verbose {
		fmt.Fprintf(r.diag, format+"\n", args...)
	}
}

// describe returns the E-code and message reported for err.
func describe(err error) (string, string) {
	var le *LoadError
	if !errors.As(err, &le) {
		return ErrCodeGeneric, err.Error()
	}
	if le.Path != "" {
		return le.Code, le.Path + ": " + le.Message
	}
	return le.Code, le.Message
}
