package model

import "errors"

var (
	// ErrNotConfigured is returned by engines used before Configure.
	ErrNotConfigured = errors.New("logbook: store not configured")
	// ErrClosed is returned by engines used after Close.
	ErrClosed = errors.New("logbook: store closed")

	ErrInvalidRange  = errors.New("logbook: end is before start")
	ErrInvalidLimit  = errors.New("logbook: limit must not be negative")
	ErrInvalidOrder  = errors.New("logbook: order must be asc or desc")
	ErrInvalidLevel  = errors.New("logbook: invalid level")
	ErrInvalidFilter = errors.New("logbook: invalid filter expression")
)

// IsValidation reports whether err is a query validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrInvalidOrder) ||
		errors.Is(err, ErrInvalidLevel) ||
		errors.Is(err, ErrInvalidFilter)
}
