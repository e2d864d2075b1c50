package retention

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSweep struct {
	mu      sync.Mutex
	cutoffs []int64
}

func (f *fakeSweep) fn(_ context.Context, cutoff int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 1, nil
}

func (f *fakeSweep) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestDisabledPolicyNeverSweeps(t *testing.T) {
	fs := &fakeSweep{}
	s := New(Policy{}, fs.fn, nil, nil)
	s.Start(context.Background())
	s.Maybe(context.Background())
	s.Stop()
	if fs.count() != 0 {
		t.Fatalf("expected no sweeps, got %d", fs.count())
	}
}

func TestStartSweepsWithCutoff(t *testing.T) {
	fs := &fakeSweep{}
	now := int64(1_000_000)
	s := New(Policy{MaxAge: 10 * time.Second}, fs.fn, func() int64 { return now }, nil)
	s.Start(context.Background())
	defer s.Stop()
	if fs.count() != 1 {
		t.Fatalf("expected one sweep at start, got %d", fs.count())
	}
	if fs.cutoffs[0] != now-10_000 {
		t.Fatalf("unexpected cutoff %d", fs.cutoffs[0])
	}
	// Interval is zero: lazy sweeps are disabled.
	s.Maybe(context.Background())
	if fs.count() != 1 {
		t.Fatalf("expected lazy sweep to be skipped without interval")
	}
}

func TestMaybeHonorsInterval(t *testing.T) {
	fs := &fakeSweep{}
	var mu sync.Mutex
	now := int64(0)
	clock := func() int64 { mu.Lock(); defer mu.Unlock(); return now }
	advance := func(ms int64) { mu.Lock(); now += ms; mu.Unlock() }

	var outcomes int
	s := New(Policy{MaxAge: time.Hour, Interval: time.Hour}, fs.fn, clock, func(int, error) { outcomes++ })
	s.Start(context.Background())
	defer s.Stop()

	s.Maybe(context.Background())
	if fs.count() != 1 {
		t.Fatalf("sweep should not repeat before interval, got %d", fs.count())
	}
	advance(time.Hour.Milliseconds())
	s.Maybe(context.Background())
	if fs.count() != 2 {
		t.Fatalf("expected sweep after interval, got %d", fs.count())
	}
	if outcomes != 2 {
		t.Fatalf("expected onSwept per sweep, got %d", outcomes)
	}
}

func TestTickerSweeps(t *testing.T) {
	fs := &fakeSweep{}
	s := New(Policy{MaxAge: time.Second, Interval: 10 * time.Millisecond}, fs.fn, nil, nil)
	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for fs.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	if fs.count() < 3 {
		t.Fatalf("expected ticker to drive sweeps, got %d", fs.count())
	}
}
