package model

import (
	"fmt"
	"slices"
)

// Order selects result ordering by id.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Query selects stored events. Zero values mean "unset".
type Query struct {
	// Start and End are inclusive millisecond bounds on Timestamp.
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
	// Level is a minimum severity unless ExplicitLevel is set.
	Level         Level `json:"level,omitempty"`
	ExplicitLevel bool  `json:"explicitLevel,omitempty"`
	// Tags restricts results to these tags. Untagged events match only when
	// the default tag is listed.
	Tags  []string `json:"tags,omitempty"`
	Limit int      `json:"limit,omitempty"`
	Order Order    `json:"order,omitempty"`
	// AfterID returns only events with id > AfterID.
	AfterID uint64 `json:"afterId,omitempty"`
	// Filter is an optional CEL expression evaluated per event.
	Filter string `json:"filter,omitempty"`
}

// Validate checks the query bounds without touching storage.
func (q Query) Validate() error {
	if q.Start > 0 && q.End > 0 && q.End < q.Start {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, q.Start, q.End)
	}
	if q.Start < 0 || q.End < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrInvalidRange)
	}
	if q.Limit < 0 {
		return ErrInvalidLimit
	}
	switch q.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrder, q.Order)
	}
	if q.Level < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, q.Level)
	}
	return nil
}

// Descending reports whether results are returned newest first.
func (q Query) Descending() bool { return q.Order == OrderDesc }

// MatchesTag applies the tag rule. defaultTag stands in for untagged events.
func (q Query) MatchesTag(tag, defaultTag string) bool {
	if len(q.Tags) == 0 {
		return true
	}
	if tag == "" {
		tag = defaultTag
	}
	return slices.Contains(q.Tags, tag)
}

// MatchesLevel applies the minimum or exact level rule.
func (q Query) MatchesLevel(l Level) bool {
	if q.Level == 0 {
		return true
	}
	if q.ExplicitLevel {
		return l == q.Level
	}
	return l >= q.Level
}

// MatchesTime applies the inclusive Start/End bounds.
func (q Query) MatchesTime(ts int64) bool {
	if q.Start > 0 && ts < q.Start {
		return false
	}
	if q.End > 0 && ts > q.End {
		return false
	}
	return true
}

// Matches applies every non-expression predicate of q to ev.
func (q Query) Matches(ev LogEvent, defaultTag string) bool {
	return ev.ID > q.AfterID &&
		q.MatchesTime(ev.Timestamp) &&
		q.MatchesLevel(ev.Level) &&
		q.MatchesTag(ev.Tag, defaultTag)
}

// DeleteQuery selects events to delete. Set bounds are combined with AND; an
// empty query deletes everything.
type DeleteQuery struct {
	Start int64  `json:"start,omitempty"`
	End   int64  `json:"end,omitempty"`
	MaxID uint64 `json:"maxId,omitempty"`
}

// Validate checks the delete bounds.
func (q DeleteQuery) Validate() error {
	if q.Start > 0 && q.End > 0 && q.End < q.Start {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, q.Start, q.End)
	}
	if q.Start < 0 || q.End < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrInvalidRange)
	}
	return nil
}

// OnlyMaxID reports whether the query is a pure id-prefix deletion.
func (q DeleteQuery) OnlyMaxID() bool { return q.MaxID > 0 && q.Start == 0 && q.End == 0 }

// Matches reports whether an event with the given id and timestamp is selected.
func (q DeleteQuery) Matches(id uint64, ts int64) bool {
	if q.MaxID > 0 && id > q.MaxID {
		return false
	}
	if q.Start > 0 && ts < q.Start {
		return false
	}
	if q.End > 0 && ts > q.End {
		return false
	}
	return true
}

// CleanUpOptions requests storage maintenance.
type CleanUpOptions struct {
	// Compress rewrites uncompressed messages with zstd.
	Compress bool `json:"compress"`
	// Vacuum reclaims space freed by deletions.
	Vacuum bool `json:"vacuum"`
}
