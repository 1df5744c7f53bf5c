package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, ExitUsage, ExitCodeFor(CodeUsage))
	assert.Equal(t, ExitNotFound, ExitCodeFor(CodeNotFound))
	assert.Equal(t, ExitAuth, ExitCodeFor(CodeAuth))
	assert.Equal(t, ExitValidation, ExitCodeFor(CodeValidation))
	assert.Equal(t, ExitNetwork, ExitCodeFor(CodeNetwork))
	assert.Equal(t, ExitAPI, ExitCodeFor(CodeAPI))
	assert.Equal(t, ExitAPI, ExitCodeFor("something_new"))
}

func TestAsErrorPassthroughAndWrap(t *testing.T) {
	orig := ErrValidation("nope")
	assert.Same(t, orig, AsError(orig))

	plain := errors.New("boom")
	wrapped := AsError(plain)
	assert.Equal(t, CodeAPI, wrapped.Code)
	assert.Equal(t, "boom", wrapped.Message)
	assert.ErrorIs(t, wrapped, plain)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "bad flag", ErrUsage("bad flag").Error())
	assert.Equal(t, "bad flag: use --force", ErrUsageHint("bad flag", "use --force").Error())
}

func TestSessionExpiredShape(t *testing.T) {
	err := ErrSessionExpired()
	assert.True(t, IsAuth(err))
	assert.Equal(t, 401, err.HTTPStatus)
	assert.Equal(t, ExitAuth, err.ExitCode())
	assert.Contains(t, err.Hint, "wai auth login")
}

func TestTaxonomyPredicates(t *testing.T) {
	assert.True(t, IsNetwork(ErrNetwork(errors.New("refused"))))
	assert.True(t, ErrNetwork(errors.New("refused")).Retryable)
	assert.True(t, IsValidation(ErrValidation("rejected")))
	assert.False(t, IsAuth(ErrValidation("rejected")))
	assert.False(t, IsNetwork(errors.New("plain")))
}

func TestJSONEnvelopeSuccess(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	require.NoError(t, w.OK(map[string]int{"id": 7},
		WithSummary("created"), WithMeta("elapsed_ms", 12)))

	var envelope struct {
		OK      bool           `json:"ok"`
		Data    map[string]int `json:"data"`
		Summary string         `json:"summary"`
		Meta    map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.True(t, envelope.OK)
	assert.Equal(t, 7, envelope.Data["id"])
	assert.Equal(t, "created", envelope.Summary)
	assert.Equal(t, float64(12), envelope.Meta["elapsed_ms"])
}

func TestJSONEnvelopeError(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	require.NoError(t, w.Err(ErrAPI(503, "overloaded")))

	var envelope ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.False(t, envelope.OK)
	assert.Equal(t, "overloaded", envelope.Error)
	assert.Equal(t, CodeAPI, envelope.Code)
	assert.Equal(t, 503, envelope.Status)
}

func TestQuietFormatEmitsDataOnly(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatQuiet, Writer: &buf})

	require.NoError(t, w.OK(map[string]string{"name": "Ada"}, WithSummary("ignored")))

	var data map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "Ada", data["name"])
	assert.NotContains(t, buf.String(), "ignored")
	assert.NotContains(t, buf.String(), `"ok"`)
}

func TestTextFormatShowsSummaryAndHint(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatText, Writer: &buf})
	require.NoError(t, w.OK(nil, WithSummary("Logged out")))
	assert.Equal(t, "Logged out\n", buf.String())

	buf.Reset()
	require.NoError(t, w.Err(ErrAuth("Not logged in")))
	assert.Contains(t, buf.String(), "Error: Not logged in")
	assert.Contains(t, buf.String(), "Hint: Run: wai auth login")
}

func TestAutoFormatFallsBackToJSONForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatAuto, Writer: &buf})
	require.NoError(t, w.OK(map[string]bool{"done": true}))
	assert.Contains(t, buf.String(), `"ok": true`)
}
