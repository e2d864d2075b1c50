// Package retention enforces the age-based retention policy of a store.
package retention

import (
	"context"
	"sync"
	"time"
)

// Policy is the retention configuration. A zero MaxAge disables retention.
// A zero Interval with a positive MaxAge sweeps once at Start only.
type Policy struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// Enabled reports whether any automatic deletion happens.
func (p Policy) Enabled() bool { return p.MaxAge > 0 }

// SweepFunc deletes every event with timestamp <= cutoffMs and returns the
// number removed.
type SweepFunc func(ctx context.Context, cutoffMs int64) (int, error)

// Sweeper runs SweepFunc on start, lazily via Maybe, and on a ticker.
type Sweeper struct {
	policy  Policy
	sweep   SweepFunc
	nowMs   func() int64
	onSwept func(n int, err error)

	mu     sync.Mutex
	last   int64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Sweeper. onSwept, if non-nil, observes each sweep outcome.
func New(p Policy, sweep SweepFunc, nowMs func() int64, onSwept func(n int, err error)) *Sweeper {
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	return &Sweeper{policy: p, sweep: sweep, nowMs: nowMs, onSwept: onSwept}
}

// Policy returns the active policy.
func (s *Sweeper) Policy() Policy { return s.policy }

// Start sweeps once and, when Interval > 0, keeps sweeping on a ticker until
// Stop or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.policy.Enabled() {
		return
	}
	s.run(ctx)
	if s.policy.Interval <= 0 {
		return
	}
	tctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.policy.Interval)
		defer t.Stop()
		for {
			select {
			case <-tctx.Done():
				return
			case <-t.C:
				s.Maybe(tctx)
			}
		}
	}()
}

// Maybe sweeps when at least Interval has elapsed since the last sweep.
func (s *Sweeper) Maybe(ctx context.Context) {
	if !s.policy.Enabled() || s.policy.Interval <= 0 {
		return
	}
	now := s.nowMs()
	s.mu.Lock()
	due := now-s.last >= s.policy.Interval.Milliseconds()
	s.mu.Unlock()
	if due {
		s.run(ctx)
	}
}

// Stop halts the ticker goroutine and waits for it.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	now := s.nowMs()
	s.mu.Lock()
	s.last = now
	s.mu.Unlock()
	n, err := s.sweep(ctx, now-s.policy.MaxAge.Milliseconds())
	if s.onSwept != nil {
		s.onSwept(n, err)
	}
}
