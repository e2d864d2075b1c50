package logbook

import (
	"errors"
	"fmt"
)

// Formatter turns a message into the string that is stored.
type Formatter func(level Level, msg string) (string, error)

// DefaultFormatter stores the message unchanged.
func DefaultFormatter(_ Level, msg string) (string, error) { return msg, nil }

// ErrFormatter is wrapped by every FormatterError.
var ErrFormatter = errors.New("logbook: formatter failed")

// FormatterError reports a formatter failure. The raw message was stored instead.
type FormatterError struct {
	Level   Level
	Message string
	Err     error
}

func (e *FormatterError) Error() string {
	return fmt.Sprintf("logbook: formatter failed for %s message: %v", e.Level, e.Err)
}

func (e *FormatterError) Unwrap() []error { return []error{ErrFormatter, e.Err} }

// format runs f, falling back to msg when it errors or panics.
func format(f Formatter, level Level, msg string) (out string, ferr *FormatterError) {
	defer func() {
		if r := recover(); r != nil {
			out = msg
			ferr = &FormatterError{Level: level, Message: msg, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	s, err := f(level, msg)
	if err != nil {
		return msg, &FormatterError{Level: level, Message: msg, Err: err}
	}
	return s, nil
}
