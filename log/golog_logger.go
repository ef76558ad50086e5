package log

import (
	"github.com/kataras/golog"
)

// gologLevels maps our levels onto golog's.
var gologLevels = map[LogLevel]golog.Level{
	LogLevelDebug: golog.DebugLevel,
	LogLevelInfo:  golog.InfoLevel,
	LogLevelWarn:  golog.WarnLevel,
	LogLevelError: golog.ErrorLevel,
	LogLevelNone:  golog.DisableLevel,
}

// GologLogger is a Logger backed by kataras/golog. Filtering happens here so
// that the golog instance can be shared by loggers with different levels.
type GologLogger struct {
	logger *golog.Logger
	level  LogLevel
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger at info level.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{
		logger: logger,
		level:  LogLevelInfo,
	}
}

func (l *GologLogger) logf(level LogLevel, format string, v []any) {
	if level < l.level || l.level == LogLevelNone {
		return
	}
	l.logger.Logf(gologLevels[level], format, v...)
}

// Debug logs at debug level
func (l *GologLogger) Debug(format string, v ...any) { l.logf(LogLevelDebug, format, v) }

// Info logs at info level
func (l *GologLogger) Info(format string, v ...any) { l.logf(LogLevelInfo, format, v) }

// Warn logs at warn level
func (l *GologLogger) Warn(format string, v ...any) { l.logf(LogLevelWarn, format, v) }

// Error logs at error level
func (l *GologLogger) Error(format string, v ...any) { l.logf(LogLevelError, format, v) }

// SetLevel sets the minimum level of the wrapper and of the underlying golog logger.
func (l *GologLogger) SetLevel(level LogLevel) {
	l.level = level
	if gl, ok := gologLevels[level]; ok {
		l.logger.Level = gl
	}
}

// GetLevel returns the current log level
func (l *GologLogger) GetLevel() LogLevel {
	return l.level
}

// Golog returns the underlying golog logger.
func (l *GologLogger) Golog() *golog.Logger {
	return l.logger
}
