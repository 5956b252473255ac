package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenTraces(t *testing.T) {
	for _, file := range []string{"end-to-end.yaml", "handles.yaml"} {
		t.Run(file, func(t *testing.T) {
			s := loadTestScript(t, file)

			result, err := RunWithGolden(t, s, WithLogger(discardLogger()))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTraceOmitsErrors(t *testing.T) {
	result := NewResult("x")
	result.AddError("boom")

	out, err := MarshalTrace(result)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"script\": \"x\",\n  \"pass\": false,\n  \"trace\": []\n}\n", string(out))
}
