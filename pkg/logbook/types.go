package logbook

import (
	"errors"

	"github.com/rzbill/logbook/internal/model"
)

type (
	Level          = model.Level
	LogEvent       = model.LogEvent
	Query          = model.Query
	DeleteQuery    = model.DeleteQuery
	Order          = model.Order
	StoreOptions   = model.StoreOptions
	CleanUpOptions = model.CleanUpOptions
)

const (
	LevelTrace   = model.LevelTrace
	LevelDebug   = model.LevelDebug
	LevelInfo    = model.LevelInfo
	LevelWarning = model.LevelWarning
	LevelError   = model.LevelError

	OrderAsc  = model.OrderAsc
	OrderDesc = model.OrderDesc

	DefaultTag = model.DefaultTag
)

var (
	// ErrUnavailable is returned by every operation of a Logger without a backend.
	ErrUnavailable = errors.New("logbook: backend unavailable")

	ErrNotConfigured = model.ErrNotConfigured
	ErrClosed        = model.ErrClosed
	ErrInvalidRange  = model.ErrInvalidRange
	ErrInvalidLimit  = model.ErrInvalidLimit
	ErrInvalidOrder  = model.ErrInvalidOrder
	ErrInvalidLevel  = model.ErrInvalidLevel
	ErrInvalidFilter = model.ErrInvalidFilter
)

// ParseLevel accepts a level name ("trace" … "error", "log" for info) or a
// positive number.
func ParseLevel(s string) (Level, error) { return model.ParseLevel(s) }

// IsValidation reports whether err is a query validation failure.
func IsValidation(err error) bool { return model.IsValidation(err) }

// ShouldWrite is the ingestion gate: candidate is recorded when it is at
// least min.
func ShouldWrite(threshold, candidate Level) bool { return candidate >= threshold }
