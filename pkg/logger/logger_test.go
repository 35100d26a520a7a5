package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("account_id", "acc-1").Uint64("balance", 1500).Msg("account synced")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "account synced", line["message"])
	assert.Equal(t, "acc-1", line["account_id"])
	assert.Equal(t, float64(1500), line["balance"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "time")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"disabled", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("node unreachable")
	assert.Contains(t, buf.String(), "node unreachable")
}

func TestNew_Pretty(t *testing.T) {
	log := New("info", true)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithRotation_WritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "walletd.log")

	log, closer, err := NewWithRotation("info", false, file, 1024, 3)
	require.NoError(t, err)

	log.Info().Str("account", "acc-1").Msg("rotated entry")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated entry")
}
