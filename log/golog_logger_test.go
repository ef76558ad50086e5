package log

import (
	"bytes"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedGolog() (*golog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	glogger := golog.New()
	glogger.SetOutput(&buf)
	glogger.SetTimeFormat("")
	return glogger, &buf
}

func TestNewGologLogger(t *testing.T) {
	glogger := golog.New()
	logger := NewGologLogger(glogger)

	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
	assert.Same(t, glogger, logger.Golog())

	logger.SetLevel(LogLevelWarn)
	assert.Equal(t, golog.WarnLevel, glogger.Level)
}

func TestGologLogger_LevelControl(t *testing.T) {
	logger := NewGologLogger(golog.New())

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	logger.SetLevel(LogLevelError)
	assert.Equal(t, LogLevelError, logger.GetLevel())

	logger.SetLevel(LogLevelNone)
	assert.Equal(t, LogLevelNone, logger.GetLevel())
}

func TestGologLogger_FormatsMessages(t *testing.T) {
	glogger, buf := newBufferedGolog()
	logger := NewGologLogger(glogger)
	logger.SetLevel(LogLevelDebug)

	logger.Debug("Debug: %s", "test")
	logger.Info("Info: %d", 42)
	logger.Warn("Warn: %v", map[string]string{"key": "value"})
	logger.Error("Error: %.2f", 3.14)

	out := buf.String()
	assert.Contains(t, out, "Debug: test")
	assert.Contains(t, out, "Info: 42")
	assert.Contains(t, out, "Warn: map[key:value]")
	assert.Contains(t, out, "Error: 3.14")
	assert.NotContains(t, out, "%")
}

func TestGologLogger_LevelFiltering(t *testing.T) {
	glogger, buf := newBufferedGolog()
	logger := NewGologLogger(glogger)
	logger.SetLevel(LogLevelError)

	logger.Debug("filtered debug")
	logger.Info("filtered info")
	logger.Warn("filtered warn")
	logger.Error("kept error")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "kept error")
}

func TestGologLogger_CustomGologInstance(t *testing.T) {
	glogger := golog.New()
	glogger.SetLevel("error")
	glogger.SetPrefix("[CUSTOM] ")

	logger := NewGologLogger(glogger)
	assert.NotNil(t, logger)

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())
}

func TestNewCustomLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCustomLogger(&buf, LogLevelWarn)

	logger.Info("hidden")
	logger.Warn("visible %d", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible 1")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"", LogLevelInfo},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"off", LogLevelNone},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		if tt.in != "" && tt.in != "warning" && tt.in != "off" {
			assert.Equal(t, tt.want, mustParse(t, got.String()))
		}
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func mustParse(t *testing.T, s string) LogLevel {
	t.Helper()
	l, err := ParseLevel(s)
	require.NoError(t, err)
	return l
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopLogger{}, OrNoop(nil))

	logger := NewDefaultLogger(LogLevelInfo)
	assert.Same(t, logger, OrNoop(logger))
}
