package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("key", "value").Msg("test message")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output), "logger output should be valid JSON")

	assert.Equal(t, "test message", output["message"])
	assert.Equal(t, "value", output["key"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time")
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugLogs bool
		infoLogs  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, false},
		{"error", false, false},
		{"off", false, false},
		{"invalid", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var debugBuf, infoBuf bytes.Buffer
			debugLog := NewWithWriter(tt.level, &debugBuf)
			debugLog.Debug().Msg("debug")
			infoLog := NewWithWriter(tt.level, &infoBuf)
			infoLog.Info().Msg("info")

			assert.Equal(t, tt.debugLogs, debugBuf.Len() > 0)
			assert.Equal(t, tt.infoLogs, infoBuf.Len() > 0)
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter("info", &buf), "purchase")

	log.Info().Msg("committed")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "purchase", output["component"])
}

func TestNew_PrettyMode(t *testing.T) {
	log := New("info", true)
	log.Info().Msg("pretty mode test")
}
