package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", StateKey, "running")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "running", entry[StateKey])
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GSV_LOG_LEVEL", "DEBUG")
	t.Setenv("GSV_LOG_FORMAT", "JSON")

	cfg := FromEnv(Config{Level: "info", Format: "text"})
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.AddSource)

	t.Setenv("GSV_DEBUG", "1")
	cfg = FromEnv(Config{Level: "info"})
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.AddSource)
}
