package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is the severity of a log event. Values are spaced by ten so that
// intermediate levels can be added without renumbering stored data.
type Level int

const (
	LevelTrace   Level = 10
	LevelDebug   Level = 20
	LevelInfo    Level = 30
	LevelWarning Level = 40
	LevelError   Level = 50
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// Valid reports whether l is a positive severity. Unnamed values between the
// known levels are accepted.
func (l Level) Valid() bool { return l > 0 }

// ParseLevel accepts a level name or its numeric value.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "log":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return Level(n), nil
}

// LogEvent is a stored log record. Events never change after insertion.
type LogEvent struct {
	ID        uint64 `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Tag       string `json:"tag,omitempty"`
}

// DefaultTag is the tag assigned to untagged console calls and the tag that
// selects untagged events in queries.
const DefaultTag = "main"
