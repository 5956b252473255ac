package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/vecstore/internal/script"
)

// WriteRun records a script result and its trace in one transaction.
// The run gets a fresh UUIDv7 ID and the next sequence number.
func (j *Journal) WriteRun(ctx context.Context, result *script.Result) (Run, error) {
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return Run{}, fmt.Errorf("write run: marshal errors: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	run := Run{
		ID:     j.newID(),
		Seq:    seq,
		Script: result.Script,
		Pass:   result.Pass,
		Errors: errs,
		Memory: result.Memory,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, script, pass, errors, allocs, frees, live, live_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Script,
		run.Pass,
		string(errsJSON),
		run.Memory.Allocs,
		run.Memory.Frees,
		run.Memory.Live,
		run.Memory.Bytes,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	if err := writeSteps(ctx, tx, run.ID, result.Trace); err != nil {
		return Run{}, err
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

func writeSteps(ctx context.Context, tx *sql.Tx, runID string, trace []script.TraceEvent) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps
		(run_id, seq, op, store, position, code, message, length, capacity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write steps: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range trace {
		var position sql.NullInt64
		if ev.Index != nil {
			position = sql.NullInt64{Int64: int64(*ev.Index), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			runID,
			ev.Seq,
			ev.Op,
			ev.Store,
			position,
			ev.Code,
			ev.Message,
			ev.Length,
			ev.Capacity,
		)
		if err != nil {
			return fmt.Errorf("write step %d: %w", ev.Seq, err)
		}
	}
	return nil
}
