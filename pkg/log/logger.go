package log

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger defines the core logging interface for logbook components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With adds fields to every subsequent entry.
	With(fields ...Field) Logger

	// SetLevel changes the minimum level at runtime.
	SetLevel(level Level)
	GetLevel() Level

	Sync() error
}

// Field is a structured log field.
type Field = zap.Field

func Str(key, val string) Field               { return zap.String(key, val) }
func Int(key string, val int) Field           { return zap.Int(key, val) }
func Int64(key string, val int64) Field       { return zap.Int64(key, val) }
func Uint64(key string, val uint64) Field     { return zap.Uint64(key, val) }
func Bool(key string, val bool) Field         { return zap.Bool(key, val) }
func Dur(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Err(err error) Field                     { return zap.Error(err) }
func F(key string, val any) Field             { return zap.Any(key, val) }

// Component tags entries with the emitting component.
func Component(name string) Field { return zap.String("component", name) }

// RequestID tags entries with an HTTP request id.
func RequestID(id string) Field { return zap.String("request_id", id) }
