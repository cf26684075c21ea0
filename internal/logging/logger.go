// Package logging provides the logging interface used across runsync.
//
// The library never logs through a package-level logger; every component
// receives a Logger at construction time. Callers can plug in their own
// implementation or use NewDefaultLogger for a simple stderr logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug for detailed debugging information
	LevelDebug Level = iota
	// LevelInfo for informational messages
	LevelInfo
	// LevelWarn for warning messages
	LevelWarn
	// LevelError for error messages
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
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
		return "UNKNOWN"
	}
}

// Logger is the interface runsync components log through.
// Implement it to integrate with your application's logging system.
type Logger interface {
	// Debug logs a debug message
	Debug(msg string, fields ...Field)

	// Info logs an informational message
	Info(msg string, fields ...Field)

	// Warn logs a warning message
	Warn(msg string, fields ...Field)

	// Error logs an error message
	Error(msg string, fields ...Field)
}

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// F is a convenience function to create a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// NoopLogger is a logger that does nothing.
type NoopLogger struct{}

// Debug implements Logger.
func (NoopLogger) Debug(string, ...Field) {}

// Info implements Logger.
func (NoopLogger) Info(string, ...Field) {}

// Warn implements Logger.
func (NoopLogger) Warn(string, ...Field) {}

// Error implements Logger.
func (NoopLogger) Error(string, ...Field) {}

// DefaultLogger writes one line per message in
// "timestamp LEVEL message key=value ..." form. Writes are serialized
// with a mutex so concurrent components do not interleave output.
type DefaultLogger struct {
	minLevel Level
	mu       sync.Mutex
	out      io.Writer
}

// NewDefaultLogger creates a logger writing to stderr at the specified
// minimum level.
func NewDefaultLogger(minLevel Level) *DefaultLogger {
	return NewDefaultLoggerTo(os.Stderr, minLevel)
}

// NewDefaultLoggerTo creates a logger writing to w at the specified
// minimum level.
func NewDefaultLoggerTo(w io.Writer, minLevel Level) *DefaultLogger {
	return &DefaultLogger{minLevel: minLevel, out: w}
}

// Debug implements Logger.
func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.emit(LevelDebug, msg, fields)
}

// Info implements Logger.
func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.emit(LevelInfo, msg, fields)
}

// Warn implements Logger.
func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.emit(LevelWarn, msg, fields)
}

// Error implements Logger.
func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.emit(LevelError, msg, fields)
}

func (l *DefaultLogger) emit(level Level, msg string, fields []Field) {
	if level < l.minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		writeValue(&b, f.Value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

// writeValue renders a field value, quoting strings that would break the
// key=value grammar.
func writeValue(b *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case string:
		if val == "" || strings.ContainsAny(val, " \t\n\"=") {
			b.WriteString(strconv.Quote(val))
		} else {
			b.WriteString(val)
		}
	case error:
		writeValue(b, val.Error())
	case time.Duration:
		b.WriteString(val.String())
	default:
		fmt.Fprint(b, val)
	}
}
