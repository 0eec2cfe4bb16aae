package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONIncludesServiceAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := NewLogger(&buf, slog.LevelInfo, LogFormatJSON, "bamm", "test")
	logger.Info("chain started", "chain", 0)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "chain started", record["msg"])
	assert.Equal(t, "bamm", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.InDelta(t, 0.0, record["chain"], 1e-12)
}

func TestNewLogger_TextOmitsEmptyEnv(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := NewLogger(&buf, slog.LevelInfo, LogFormatText, "bamm", "")
	logger.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "service=bamm")
	assert.NotContains(t, out, "env=")
}

func TestNewLogger_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := NewLogger(&buf, slog.LevelWarn, LogFormatText, "bamm", "")
	logger.Debug("not shown")
	logger.Info("not shown either")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestTracingHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	handler := NewTracingHandler(slog.NewJSONHandler(&buf, nil), "bamm", "test")
	logger := slog.New(handler).WithGroup("mcmc")
	logger.InfoContext(context.Background(), "step", "generation", 5)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	// Service attrs stay top-level; grouped attrs nest.
	assert.Equal(t, "bamm", record["service"])

	group, ok := record["mcmc"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 5.0, group["generation"], 1e-12)
}
