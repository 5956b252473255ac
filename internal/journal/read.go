package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const runColumns = `id, seq, script, pass, errors, allocs, frees, live, live_bytes`

// ReadRun returns the run with the given ID, or ErrRunNotFound.
func (j *Journal) ReadRun(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ListRuns returns journaled runs ordered by seq. A non-empty script
// restricts the listing to runs of that script.
//
// Returns an empty slice (not nil) if no runs exist.
func (j *Journal) ListRuns(ctx context.Context, scriptName string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq ASC`
	args := []any{}
	if scriptName != "" {
		query = `SELECT ` + runColumns + ` FROM runs WHERE script = ? ORDER BY seq ASC`
		args = append(args, scriptName)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the trace of a run ordered by step seq.
// Returns ErrRunNotFound if the run does not exist.
func (j *Journal) ReadSteps(ctx context.Context, runID string) ([]Step, error) {
	if _, err := j.ReadRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, op, store, position, code, message, length, capacity
		FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var (
			step     Step
			position sql.NullInt64
		)
		if err := rows.Scan(
			&step.Seq,
			&step.Op,
			&step.Store,
			&position,
			&step.Code,
			&step.Message,
			&step.Length,
			&step.Capacity,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if position.Valid {
			idx := int(position.Int64)
			step.Index = &idx
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run      Run
		errsJSON string
	)
	if err := s.Scan(
		&run.ID,
		&run.Seq,
		&run.Script,
		&run.Pass,
		&errsJSON,
		&run.Memory.Allocs,
		&run.Memory.Frees,
		&run.Memory.Live,
		&run.Memory.Bytes,
	); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(errsJSON), &run.Errors); err != nil {
		return Run{}, fmt.Errorf("unmarshal errors of run %s: %w", run.ID, err)
	}
	return run, nil
}
