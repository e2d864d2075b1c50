// Package clock provides the write-time clock shared by the storage engines.
package clock

import (
	"sync"
	"time"
)

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Monotonic hands out non-decreasing millisecond timestamps. If the wall clock
// goes backwards it keeps returning the last value until the clock catches up,
// so timestamps stay ordered with ids.
type Monotonic struct {
	mu     sync.Mutex
	lastMs int64
	now    func() int64
}

// NewMonotonic creates a clock reading from now, or NowMs when now is nil.
func NewMonotonic(now func() int64) *Monotonic {
	return &Monotonic{now: now}
}

// Observe raises the floor to ms, typically the newest stored timestamp
// loaded at open time.
func (m *Monotonic) Observe(ms int64) {
	m.mu.Lock()
	if ms > m.lastMs {
		m.lastMs = ms
	}
	m.mu.Unlock()
}

// Next returns the current time, clamped to be >= every earlier result.
func (m *Monotonic) Next() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := m.read()
	if ms < m.lastMs {
		ms = m.lastMs
	}
	m.lastMs = ms
	return ms
}

// Wall returns the unclamped current time.
func (m *Monotonic) Wall() int64 { return m.read() }

func (m *Monotonic) read() int64 {
	if m.now != nil {
		return m.now()
	}
	return NowMs()
}
