package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: " WARN ", want: zapcore.WarnLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "", want: zapcore.InfoLevel},
		{in: "verbose", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("LOG_PATH", "")
	assert.Equal(t, filepath.Join(dir, "data", "app.log"), logPath(filepath.Join(dir, "data")))

	t.Setenv("LOG_PATH", "/var/log/pokerstats.log")
	assert.Equal(t, "/var/log/pokerstats.log", logPath(dir))
}
