package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wantanidea/wantanidea-cli/internal/output"
)

func TestApplyJQSingleValue(t *testing.T) {
	input := map[string]any{"user": map[string]any{"name": "Ada"}}
	out, err := applyJQ(".user.name", input)
	require.NoError(t, err)
	assert.Equal(t, "Ada", out)
}

func TestApplyJQMultipleValues(t *testing.T) {
	input := []any{
		map[string]any{"id": 1.0},
		map[string]any{"id": 2.0},
	}
	out, err := applyJQ(".[].id", input)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, out)
}

func TestApplyJQInvalidExpression(t *testing.T) {
	_, err := applyJQ(".foo[", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestApplyJQEvaluationError(t *testing.T) {
	_, err := applyJQ(".foo.bar", "a string has no fields")
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}
