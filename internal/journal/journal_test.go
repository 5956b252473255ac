package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/vecstore/internal/memory"
	"github.com/roach88/vecstore/internal/script"
)

// TestMain fails the package if any test leaves a database open; an
// unclosed *sql.DB keeps its connection opener goroutine running.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// createTestJournal opens a journal in a temp directory.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func intPtr(i int) *int { return &i }

// createTestResult builds a two-step passing result.
func createTestResult(name string) *script.Result {
	r := script.NewResult(name)
	r.Trace = append(r.Trace,
		script.TraceEvent{Seq: 1, Op: script.OpInit, Store: "v", Code: script.CodeOK, Capacity: 8},
		script.TraceEvent{Seq: 2, Op: script.OpErase, Store: "v", Index: intPtr(3), Code: "INDEX_OUT_OF_RANGE",
			Message: "vector: erase: INDEX_OUT_OF_RANGE (index=3, length=0)", Capacity: 8},
	)
	r.Memory = memory.Stats{Allocs: 2, Frees: 2}
	return r
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, j.Close())
	}
}

// pragma reads a PRAGMA value through the journal's connection.
func pragma(t *testing.T, j *Journal, name string) string {
	t.Helper()
	var value string
	require.NoError(t, j.db.QueryRow("PRAGMA "+name).Scan(&value))
	return value
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)

	assert.Equal(t, "wal", pragma(t, j, "journal_mode"))
	assert.Equal(t, "1", pragma(t, j, "synchronous"))
	assert.Equal(t, "5000", pragma(t, j, "busy_timeout"))
	assert.Equal(t, "1", pragma(t, j, "foreign_keys"))
	assert.Equal(t, fmt.Sprint(schemaVersion), pragma(t, j, "user_version"))
}

func TestOpen_CreatesScriptIndex(t *testing.T) {
	j := createTestJournal(t)

	var name string
	err := j.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'runs' AND name = 'idx_runs_script'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_runs_script", name)
}

func TestOpen_UpgradesUnversionedJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.db.Exec("DROP INDEX idx_runs_script")
	require.NoError(t, err)
	_, err = j.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	assert.Equal(t, fmt.Sprint(schemaVersion), pragma(t, j, "user_version"))
	var count int
	require.NoError(t, j.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'idx_runs_script'`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion+1))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaVersion)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	require.Error(t, err)
}

func TestWriteRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	result := createTestResult("erase")
	run, err := j.WriteRun(ctx, result)
	require.NoError(t, err)

	id, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, int64(1), run.Seq)

	got, err := j.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("ReadRun mismatch (-want +got):\n%s", diff)
	}

	steps, err := j.ReadSteps(ctx, run.ID)
	require.NoError(t, err)
	want := []Step{
		{Seq: 1, Op: "init", Store: "v", Code: "OK", Capacity: 8},
		{Seq: 2, Op: "erase", Store: "v", Index: intPtr(3), Code: "INDEX_OUT_OF_RANGE",
			Message: "vector: erase: INDEX_OUT_OF_RANGE (index=3, length=0)", Capacity: 8},
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("ReadSteps mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRun_FailedResult(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	result := createTestResult("leaky")
	result.AddError("leaked 1 buffers (3 bytes)")
	result.Memory = memory.Stats{Allocs: 1, Live: 1, Bytes: 3}

	run, err := j.WriteRun(ctx, result)
	require.NoError(t, err)

	got, err := j.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, got.Pass)
	assert.Equal(t, []string{"leaked 1 buffers (3 bytes)"}, got.Errors)
	assert.Equal(t, int64(1), got.Memory.Live)
	assert.Equal(t, int64(3), got.Memory.Bytes)
}

func TestWriteRun_SequenceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	for i := 1; i <= 3; i++ {
		run, err := j.WriteRun(ctx, createTestResult(fmt.Sprintf("s%d", i%2)))
		require.NoError(t, err)
		assert.Equal(t, int64(i), run.Seq)
	}

	runs, err := j.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, run := range runs {
		assert.Equal(t, int64(i+1), run.Seq)
	}

	filtered, err := j.ListRuns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, int64(1), filtered[0].Seq)
	assert.Equal(t, int64(3), filtered[1].Seq)
}

func TestWriteRun_SequenceSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j1, err := Open(path)
	require.NoError(t, err)
	_, err = j1.WriteRun(ctx, createTestResult("a"))
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()
	run, err := j2.WriteRun(ctx, createTestResult("b"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), run.Seq)
}

func TestListRuns_Empty(t *testing.T) {
	j := createTestJournal(t)

	runs, err := j.ListRuns(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestReadRun_NotFound(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	_, err := j.ReadRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = j.ReadSteps(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWriteRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := createTestJournal(t)

	_, err := j.WriteRun(ctx, createTestResult("x"))
	require.Error(t, err)

	runs, err := j.ListRuns(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestWriteRun_ScriptTrace(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	s, err := script.Load(filepath.Join("..", "script", "testdata", "scripts", "handles.yaml"))
	require.NoError(t, err)
	result, err := script.Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	run, err := j.WriteRun(ctx, result)
	require.NoError(t, err)

	steps, err := j.ReadSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, len(result.Trace))
	for i, ev := range result.Trace {
		assert.Equal(t, ev.Op, steps[i].Op)
		assert.Equal(t, ev.Code, steps[i].Code)
		assert.Equal(t, ev.Message, steps[i].Message)
		assert.Equal(t, ev.Length, steps[i].Length)
		assert.Equal(t, ev.Capacity, steps[i].Capacity)
	}
}
