package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationError is one script that failed to load or validate.
type ValidationError struct {
	Path    string `json:"path,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Scripts int               `json:"scripts"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "validate <script|dir>...",
		Short: "Validate scripts without running them",
		Long: `Parse and validate store scripts without running them.

Checks YAML/CUE syntax, unknown fields, op arguments and expectation codes.
Every script is checked; all failures are reported. The --config file, if
given, is validated too.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "filter scripts by glob pattern")

	return cmd
}

func runValidate(opts *RootOptions, paths []string, filter string, cmd *cobra.Command) error {
	rep := newReporter(opts, cmd)

	var validationErrors []ValidationError
	if _, err := loadConfig(opts); err != nil {
		validationErrors = append(validationErrors, toValidationError(err))
	}

	loaded, loadErrs := LoadScripts(paths, filter, LoadModeCollectAll)

	// Nothing to validate (missing path, no files) is a command error.
	if loaded == nil && len(loadErrs) == 1 {
		var le *LoadError
		if errors.As(loadErrs[0], &le) && le.Path == "" {
			return rep.abort(le.Code, le.Message, le)
		}
	}

	for _, ls := range loaded {
		rep.debugf("Validated %s (%s, %d steps)", ls.Path, ls.Script.Name, len(ls.Script.Steps))
	}
	for _, err := range loadErrs {
		validationErrors = append(validationErrors, toValidationError(err))
	}

	total := len(loaded) + len(loadErrs)
	if len(validationErrors) > 0 {
		return outputValidationErrors(rep, total, validationErrors)
	}

	if rep.json {
		return rep.ok(ValidationResult{Valid: true, Scripts: total})
	}
	fmt.Fprintf(rep.out, "✓ All %d script(s) valid\n", total)
	return nil
}

func toValidationError(err error) ValidationError {
	var le *LoadError
	if errors.As(err, &le) {
		return ValidationError{Path: le.Path, Code: le.Code, Message: le.Message}
	}
	return ValidationError{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidationErrors reports every failed script. The first error
// supplies the envelope's E-code.
func outputValidationErrors(rep *reporter, total int, errs []ValidationError) error {
	failed := failuref("validation failed with %d error(s)", len(errs))

	if rep.json {
		data := ValidationResult{Valid: false, Scripts: total, Errors: errs}
		if err := rep.fail(errs[0].Code, errs[0].Message, data); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(rep.out, "✗ Validation failed")
	fmt.Fprintln(rep.out)
	for _, err := range errs {
		if err.Path != "" {
			fmt.Fprintln(rep.out, err.Path)
		}
		fmt.Fprintf(rep.out, "  %s: %s\n\n", err.Code, err.Message)
	}
	return failed
}
