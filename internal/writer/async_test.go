package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/logbook/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
	batches int
	fail    error
	block   chan struct{}
}

func (s *recordingSink) AppendBatch(_ context.Context, entries []Entry) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.entries = append(s.entries, entries...)
	s.batches++
	return nil
}

func (s *recordingSink) snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func TestWriteFlushPreservesOrder(t *testing.T) {
	sink := &recordingSink{}
	a := New(sink, WithBatchSize(7))
	defer a.Close()

	for i := 0; i < 50; i++ {
		if err := a.Write(Entry{Level: model.LevelInfo, Message: fmt.Sprint(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := sink.snapshot()
	if len(got) != 50 {
		t.Fatalf("want 50 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Message != fmt.Sprint(i) {
			t.Fatalf("entry %d out of order: %q", i, e.Message)
		}
	}
}

func TestConcurrentWritersAllLand(t *testing.T) {
	sink := &recordingSink{}
	a := New(sink)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = a.Write(Entry{Message: fmt.Sprintf("%d-%d", g, i)})
			}
		}(g)
	}
	wg.Wait()
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := len(sink.snapshot()); n != 800 {
		t.Fatalf("want 800 entries, got %d", n)
	}
}

func TestWriteAfterClose(t *testing.T) {
	a := New(&recordingSink{})
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Write(Entry{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
	if err := a.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed from flush, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
}

func TestOnErrorReceivesSinkFailure(t *testing.T) {
	boom := errors.New("disk gone")
	errs := make(chan error, 1)
	a := New(&recordingSink{fail: boom}, WithOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	}))
	defer a.Close()
	_ = a.Write(Entry{Message: "x"})
	_ = a.Flush(context.Background())
	select {
	case err := <-errs:
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected error callback")
	}
}

func TestDropOnFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	var dropped int
	var mu sync.Mutex
	a := New(sink, WithBufferSize(1), WithBatchSize(1), WithDropOnFull(), WithOnError(func(err error) {
		if errors.Is(err, ErrBufferFull) {
			mu.Lock()
			dropped++
			mu.Unlock()
		}
	}))
	for i := 0; i < 10; i++ {
		_ = a.Write(Entry{Message: "x"})
	}
	close(sink.block)
	_ = a.Close()
	mu.Lock()
	defer mu.Unlock()
	if dropped == 0 {
		t.Fatalf("expected drops with a blocked sink and buffer of 1")
	}
}

func TestAfterBatchHook(t *testing.T) {
	var calls int
	var mu sync.Mutex
	a := New(&recordingSink{}, WithAfterBatch(func(context.Context) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	_ = a.Write(Entry{Message: "x"})
	_ = a.Flush(context.Background())
	_ = a.Close()
	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Fatalf("expected after-batch hook to run")
	}
}

type slowSink struct {
	mu      sync.Mutex
	stored  int
	stopped bool
	late    int
}

func (s *slowSink) AppendBatch(_ context.Context, entries []Entry) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.late++
	}
	s.stored += len(entries)
	return nil
}

func TestCloseTimeoutStopsDrainBeforeReturning(t *testing.T) {
	sink := &slowSink{}
	var mu sync.Mutex
	var reported *DrainError
	a := New(sink, WithBufferSize(500), WithBatchSize(1), WithDrainTimeout(20*time.Millisecond),
		WithOnError(func(err error) {
			var de *DrainError
			if errors.As(err, &de) {
				mu.Lock()
				reported = de
				mu.Unlock()
			}
		}))
	for i := 0; i < 500; i++ {
		if err := a.Write(Entry{Message: fmt.Sprint(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	err := a.Close()
	if !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("want ErrDrainTimeout, got %v", err)
	}
	sink.mu.Lock()
	sink.stopped = true
	stored := sink.stored
	sink.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.late != 0 || sink.stored != stored {
		t.Fatalf("sink called after Close returned: late=%d", sink.late)
	}

	var de *DrainError
	if !errors.As(err, &de) {
		t.Fatalf("want *DrainError, got %T", err)
	}
	if stored+de.Discarded != 500 {
		t.Fatalf("stored %d + discarded %d != 500", stored, de.Discarded)
	}
	mu.Lock()
	defer mu.Unlock()
	if reported == nil || reported.Discarded != de.Discarded {
		t.Fatalf("discarded entries not reported through OnError: %v", reported)
	}
}

func TestCloseWithinTimeoutDrainsEverything(t *testing.T) {
	sink := &slowSink{}
	a := New(sink, WithBatchSize(10), WithDrainTimeout(5*time.Second))
	for i := 0; i < 100; i++ {
		_ = a.Write(Entry{Message: "x"})
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.stored != 100 {
		t.Fatalf("want 100 stored, got %d", sink.stored)
	}
}
