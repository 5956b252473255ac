package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vecstore/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Script   string // optional - filter listing to one script
}

// TraceResult is a run with its steps.
type TraceResult struct {
	Run   journal.Run    `json:"run"`
	Steps []journal.Step `json:"steps"`
}

// RunList is the listing output of the trace command.
type RunList struct {
	Runs []journal.Run `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect journaled runs",
		Long: `Inspect runs recorded by "vecstore run --db".

Without a run ID, lists journaled runs in sequence order. With a run ID,
prints every step of that run: the op, its result code, and the store's
length and capacity after the step.

Examples:
  vecstore trace --db ./runs.db
  vecstore trace --db ./runs.db --script growth
  vecstore trace --db ./runs.db 019a0c3e-5b1f-7c3a-8e21-4f6d2b9a1c07 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Script, "script", "", "list only runs of this script")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	rep := newReporter(opts.RootOptions, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	jr, err := journal.Open(opts.Database)
	if err != nil {
		return rep.abort(ErrCodeJournal, err.Error(), err)
	}
	defer jr.Close()

	if runID == "" {
		return listRuns(ctx, jr, opts, rep)
	}

	run, err := jr.ReadRun(ctx, runID)
	if errors.Is(err, journal.ErrRunNotFound) {
		return rep.abort(ErrCodeInvalidRunID, err.Error(), err)
	}
	if err != nil {
		return rep.abort(ErrCodeJournal, err.Error(), err)
	}

	steps, err := jr.ReadSteps(ctx, runID)
	if err != nil {
		return rep.abort(ErrCodeJournal, err.Error(), err)
	}

	result := TraceResult{Run: run, Steps: steps}
	if rep.json {
		return rep.ok(result)
	}
	writeTraceText(rep.out, result, rep.verbose)
	return nil
}

func listRuns(ctx context.Context, jr *journal.Journal, opts *TraceOptions, rep *reporter) error {
	runs, err := jr.ListRuns(ctx, opts.Script)
	if err != nil {
		return rep.abort(ErrCodeJournal, err.Error(), err)
	}

	if rep.json {
		return rep.ok(RunList{Runs: runs})
	}

	w := rep.out
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(w, "[%d] %s %s %s\n", run.Seq, run.ID, passStatus(run.Pass), run.Script)
	}
	return nil
}

// writeTraceText outputs a run's steps as text.
func writeTraceText(w io.Writer, result TraceResult, verbose bool) {
	run := result.Run
	fmt.Fprintf(w, "Run: %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "Script: %s\n", run.Script)
	fmt.Fprintf(w, "Status: %s\n", passStatus(run.Pass))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Steps ===")
	if len(result.Steps) == 0 {
		fmt.Fprintln(w, "  (no steps)")
	}
	for _, step := range result.Steps {
		target := step.Store
		if step.Index != nil {
			target = fmt.Sprintf("%s[%d]", step.Store, *step.Index)
		}
		fmt.Fprintf(w, "  [%d] %-9s %-8s %-18s len=%d cap=%d\n",
			step.Seq, step.Op, target, step.Code, step.Length, step.Capacity)
		if verbose && step.Message != "" {
			fmt.Fprintf(w, "       %s\n", step.Message)
		}
	}

	if len(run.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Errors ===")
		for _, e := range run.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Memory ===")
	fmt.Fprintf(w, "  Allocs: %d\n", run.Memory.Allocs)
	fmt.Fprintf(w, "  Frees:  %d\n", run.Memory.Frees)
	fmt.Fprintf(w, "  Live:   %d (%d bytes)\n", run.Memory.Live, run.Memory.Bytes)
}

// passStatus returns a human-readable run status.
func passStatus(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
