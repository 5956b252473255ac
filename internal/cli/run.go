package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/vecstore/internal/config"
	"github.com/roach88/vecstore/internal/journal"
	"github.com/roach88/vecstore/internal/script"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // optional journal path
	Filter   string // script filter (glob pattern)
}

// ScriptResult holds the outcome of a single script.
type ScriptResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// RunResult holds the overall result of the run command.
type RunResult struct {
	Scripts []ScriptResult `json:"scripts"`
	Passed  int            `json:"passed"`
	Failed  int            `json:"failed"`
	Total   int            `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script|dir>...",
		Short: "Run store scripts",
		Long: `Run scripts of store operations and check their expectations.

Each script runs against fresh stores. Stores left live at the end are
freed and the run fails if any element buffer leaked. With --db, every
run and its trace are recorded in a SQLite journal.

Exit codes:
  0 - All scripts passed
  1 - One or more scripts failed
  2 - Command error (invalid paths, bad config, journal errors)

Examples:
  vecstore run ./scripts
  vecstore run ./scripts/growth.yaml --db ./runs.db
  vecstore run ./scripts --filter "insert-*" --format json
  vecstore run ./scripts --config ./vecstore.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite journal")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scripts by glob pattern")

	return cmd
}

func runScripts(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	rep := newReporter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		code, message := describe(err)
		return rep.abort(code, message, err)
	}

	loaded, loadErrs := LoadScripts(paths, opts.Filter, LoadModeFailFast)
	if len(loadErrs) > 0 {
		code, message := describe(loadErrs[0])
		return rep.abort(code, message, loadErrs[0])
	}

	var jr *journal.Journal
	if opts.Database != "" {
		logger.Debug("opening journal", "path", opts.Database)
		jr, err = journal.Open(opts.Database)
		if err != nil {
			return rep.abort(ErrCodeJournal, err.Error(), err)
		}
		defer func() {
			if closeErr := jr.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := RunResult{
		Scripts: make([]ScriptResult, 0, len(loaded)),
		Total:   len(loaded),
	}
	for _, ls := range loaded {
		sr, err := runOne(ctx, ls, cfg, jr, logger)
		if err != nil {
			return rep.abort(ErrCodeJournal, fmt.Sprintf("%s: %v", ls.Path, err), err)
		}
		result.Scripts = append(result.Scripts, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if !rep.json {
			writeScriptResult(rep, sr)
		}
	}

	if rep.json {
		if err := rep.ok(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(rep.out, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return failuref("%d of %d script(s) failed", result.Failed, result.Total)
	}
	return nil
}

// runOne executes one script and journals it when jr is set. Script
// failures are reported in the result; only journal errors are returned.
func runOne(ctx context.Context, ls LoadedScript, cfg config.Config, jr *journal.Journal, logger *slog.Logger) (ScriptResult, error) {
	sr := ScriptResult{Name: ls.Script.Name, Path: ls.Path}

	res, err := script.Run(ls.Script, script.WithLogger(logger), script.WithConfig(cfg))
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr, nil
	}
	sr.Pass = res.Pass
	sr.Errors = res.Errors

	if jr != nil {
		run, err := jr.WriteRun(ctx, res)
		if err != nil {
			return sr, err
		}
		sr.RunID = run.ID
		logger.Debug("run journaled", "script", res.Script, "run_id", run.ID, "seq", run.Seq)
	}
	return sr, nil
}

func writeScriptResult(rep *reporter, sr ScriptResult) {
	if sr.Pass {
		fmt.Fprintf(rep.out, "✓ %s\n", sr.Name)
	} else {
		fmt.Fprintf(rep.out, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(rep.out, "  %s\n", e)
		}
	}
	if sr.RunID != "" {
		rep.debugf("  run %s (%s)", sr.RunID, filepath.Base(sr.Path))
	}
}
