package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))

		out = append(out, entry)
	}

	return out
}

//nolint:paralleltest // Modifies the process-wide default logger
func TestGetCarriesContextValues(t *testing.T) {
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{Subsystem: "fsm", JSON: true, Output: &buf})

	Get().Info("plain")

	ctx := With(WithSubsystem(t.Context(), "orders"), "machine", "checkout")
	Get(ctx).Info("scoped")

	Get(WithMuted(ctx, true)).Info("silent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "fsm", lines[0]["subsystem"])
	assert.Equal(t, "orders", lines[1]["subsystem"])
	assert.Equal(t, "checkout", lines[1]["machine"])
}

//nolint:paralleltest // Modifies the process-wide default logger
func TestAnnotatedErrorAttributes(t *testing.T) {
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{Subsystem: "fsm", JSON: true, Output: &buf})

	base := errors.New("commit failed") //nolint:err113
	err := AnnotateError(base, "action", "finish", "state", "running")

	require.ErrorIs(t, err, base)
	assert.Equal(t, "commit failed", err.Error())
	assert.NoError(t, AnnotateError(nil, "ignored", true))

	Get(context.Background()).Error("step failed", "error", err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)

	assert.Equal(t, "finish", lines[0]["action"])
	assert.Equal(t, "running", lines[0]["state"])
	assert.Equal(t, "commit failed", lines[0]["error"])
}

//nolint:paralleltest // Uses t.Setenv and modifies the default logger
func TestConfigureLoggingFromEnvironment(t *testing.T) {
	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "WARN")

	var buf bytes.Buffer

	logger, err := ConfigureLogging(t.Context(), "fsm-test", WithOutput(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))

	t.Setenv("LOG_OUTPUT", "syslog")

	_, err = ConfigureLogging(t.Context(), "fsm-test")
	require.ErrorIs(t, err, ErrInvalidLogOutput)
}
