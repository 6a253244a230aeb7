package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", "json", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", zap.Int("worker", 1))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 1, entry["worker"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("WARN", "console", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("careful")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "careful")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "console", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log level "loud"`)
}
