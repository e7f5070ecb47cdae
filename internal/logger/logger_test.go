package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	tests := []struct {
		name      string
		dev       bool
		wantLevel zerolog.Level
	}{
		{name: "production", dev: false, wantLevel: zerolog.InfoLevel},
		{name: "debug", dev: true, wantLevel: zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := SetupWriter(&buf, tt.dev)

			require.Equal(t, tt.wantLevel, logger.GetLevel())
			require.Equal(t, tt.wantLevel, log.Logger.GetLevel())
		})
	}
}

func TestSetupWriterJSON(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	logger := SetupWriter(&buf, false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("file", "logo.svg").Msg("Built file")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "logo.svg", entry["file"])
	require.Equal(t, "Built file", entry["message"])
	require.Contains(t, entry, "time")
}

func TestSetupWriterConsole(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	logger := SetupWriter(&buf, true)

	logger.Debug().Int("size", 42).Msg("Evaluating data URL condition")

	out := buf.String()
	require.Contains(t, out, "Evaluating data URL condition")
	require.Contains(t, out, "size=42")
}

func TestIsTerminal(t *testing.T) {
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = devNull.Close() })

	regular, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = regular.Close() })

	tests := []struct {
		name string
		w    io.Writer
	}{
		{name: "buffer", w: &bytes.Buffer{}},
		{name: "null device", w: devNull},
		{name: "regular file", w: regular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, isTerminal(tt.w))
		})
	}
}
