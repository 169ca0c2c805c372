// Package logger provides a simple leveled logger for dayche.
// It wraps the standard `log` package and filters messages by level.
// Loggers are plain values handed to the components that need them; there is
// no process-wide logger.
package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues or warning messages.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
)

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel converts a level name into a LogLevel.
// Valid values are "DEBUG", "INFO", "WARN"/"WARNING", "ERROR" and "CRITICAL" (case-insensitive).
// The second return value is false when the name is unknown, in which case LevelInfo is returned.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR", "CRITICAL", "FATAL":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Logger is a leveled logger writing `[LEVEL] message` lines through a *log.Logger.
type Logger struct {
	out   *log.Logger
	level atomic.Int32
}

// New creates a Logger writing to w at the given level.
// An unknown level falls back to INFO and is reported once on the new logger.
// A nil writer means os.Stderr.
func New(level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := &Logger{out: log.New(w, "", log.LstdFlags)}
	lv, ok := ParseLevel(level)
	l.level.Store(int32(lv))
	if !ok && level != "" {
		l.Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
	return l
}

// Discard returns a Logger that drops every message. Useful in tests.
func Discard() *Logger {
	return New("ERROR", io.Discard)
}

// SetLevel changes the minimum level of messages written by l.
func (l *Logger) SetLevel(level string) {
	lv, _ := ParseLevel(level)
	l.level.Store(int32(lv))
}

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

// Enabled reports whether messages at lv are written.
func (l *Logger) Enabled(lv LogLevel) bool {
	return l != nil && l.Level() <= lv
}

// Writer returns the underlying destination.
func (l *Logger) Writer() io.Writer {
	return l.out.Writer()
}

func (l *Logger) logf(lv LogLevel, format string, v ...interface{}) {
	if !l.Enabled(lv) {
		return
	}
	l.out.Printf("["+lv.String()+"] "+format, v...)
}

// Debugf formats and outputs a DEBUG level log message.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level log message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level log message.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logf(LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(LevelError, format, v...)
}
