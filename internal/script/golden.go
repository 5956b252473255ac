package script

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file form of a run.
type TraceSnapshot struct {
	Script string       `json:"script"`
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
}

// MarshalTrace renders the snapshot of a result as indented JSON with a
// trailing newline.
func MarshalTrace(result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		Script: result.Script,
		Pass:   result.Pass,
		Trace:  result.Trace,
	}
	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// AssertGolden compares the result's trace against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/script -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}

// RunWithGolden runs a script and compares its trace against the golden
// file named after the script.
func RunWithGolden(t *testing.T, s *Script, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(s, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, s.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}
