// Package writer serializes log writes from many goroutines into a single
// ordered batch stream.
package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rzbill/logbook/internal/model"
)

const (
	defaultBufferSize   = 4096
	defaultBatchSize    = 256
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write and Flush after Close.
var ErrClosed = errors.New("writer: closed")

// Entry is one pending write.
type Entry struct {
	Level   model.Level
	Message string
	Tag     string
}

// Sink receives batches in submission order from a single goroutine.
type Sink interface {
	AppendBatch(ctx context.Context, entries []Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, entries []Entry) error

func (f SinkFunc) AppendBatch(ctx context.Context, entries []Entry) error { return f(ctx, entries) }

// Option configures an Async writer.
type Option func(*Async)

// WithBufferSize sets the channel capacity. Default: 4096.
func WithBufferSize(n int) Option {
	return func(a *Async) {
		if n > 0 {
			a.bufSize = n
		}
	}
}

// WithBatchSize caps the number of entries per AppendBatch. Default: 256.
func WithBatchSize(n int) Option {
	return func(a *Async) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithOnError sets the callback for failed batches.
func WithOnError(f func(error)) Option {
	return func(a *Async) {
		if f != nil {
			a.errFunc = f
		}
	}
}

// WithDropOnFull makes Write drop the entry instead of blocking when the
// buffer is full. Dropped entries are reported through the error callback.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close lets buffered entries reach the
// Sink. Entries still queued afterwards are discarded. Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) {
		if d > 0 {
			a.drainTimeout = d
		}
	}
}

// WithAfterBatch registers a hook run on the drain goroutine after every
// successful batch.
func WithAfterBatch(f func(ctx context.Context)) Option {
	return func(a *Async) { a.afterBatch = f }
}

// ErrBufferFull is reported when WithDropOnFull discards an entry.
var ErrBufferFull = errors.New("writer: buffer full, entry dropped")

// ErrDrainTimeout is returned by Close when the drain timeout expired before
// the buffer was empty.
var ErrDrainTimeout = errors.New("writer: drain timed out")

// DrainError reports the entries Close discarded after the drain timeout.
// It matches ErrDrainTimeout with errors.Is.
type DrainError struct {
	Discarded int
}

func (e *DrainError) Error() string {
	return fmt.Sprintf("%s, %d entries discarded", ErrDrainTimeout, e.Discarded)
}

func (e *DrainError) Is(target error) bool { return target == ErrDrainTimeout }

type item struct {
	entry Entry
	// barrier, when non-nil, is closed once every earlier entry is applied.
	barrier chan struct{}
}

// Async decouples log producers from the storage engine. Producers enqueue
// into a buffered channel; one goroutine drains it, so batches reach the Sink
// strictly in enqueue order.
type Async struct {
	sink         Sink
	ch           chan item
	done         chan struct{}
	abort        chan struct{}
	errFunc      func(error)
	afterBatch   func(ctx context.Context)
	bufSize      int
	batchSize    int
	dropOnFull   bool
	drainTimeout time.Duration
	discarded    int

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New starts an Async writer in front of sink.
func New(sink Sink, opts ...Option) *Async {
	a := &Async{
		sink:         sink,
		bufSize:      defaultBufferSize,
		batchSize:    defaultBatchSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(error) {},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan item, a.bufSize)
	a.done = make(chan struct{})
	a.abort = make(chan struct{})
	go a.drain()
	return a
}

// Write enqueues e. It blocks while the buffer is full unless the writer was
// built WithDropOnFull.
func (a *Async) Write(e Entry) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	if a.dropOnFull {
		select {
		case a.ch <- item{entry: e}:
		default:
			a.errFunc(ErrBufferFull)
		}
		return nil
	}
	a.ch <- item{entry: e}
	return nil
}

// Flush blocks until every entry enqueued before the call has been handed to
// the Sink, or ctx is done.
func (a *Async) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	select {
	case a.ch <- item{barrier: barrier}:
	case <-ctx.Done():
		a.mu.RUnlock()
		return ctx.Err()
	}
	a.mu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes and drains what is buffered. If the drain
// timeout expires first, the remaining entries are discarded and reported
// through the error callback as a *DrainError. Close returns only after the
// drain goroutine has exited, so the Sink is never called afterwards.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()
		t := time.NewTimer(a.drainTimeout)
		defer t.Stop()
		select {
		case <-a.done:
			return
		case <-t.C:
		}
		close(a.abort)
		// at most the batch in flight is still being applied
		<-a.done
		if a.discarded > 0 {
			err = &DrainError{Discarded: a.discarded}
		}
	})
	return err
}

func (a *Async) aborted() bool {
	select {
	case <-a.abort:
		return true
	default:
		return false
	}
}

func (a *Async) drain() {
	defer close(a.done)
	batch := make([]Entry, 0, a.batchSize)
	var barriers []chan struct{}

	flush := func() {
		if len(batch) > 0 && a.aborted() {
			a.discarded += len(batch)
			batch = batch[:0]
		}
		if len(batch) > 0 {
			ctx := context.Background()
			if err := a.sink.AppendBatch(ctx, batch); err != nil {
				a.errFunc(err)
			} else if a.afterBatch != nil {
				a.afterBatch(ctx)
			}
			batch = batch[:0]
		}
		for _, b := range barriers {
			close(b)
		}
		barriers = barriers[:0]
	}

	add := func(it item) {
		if it.barrier != nil {
			barriers = append(barriers, it.barrier)
			return
		}
		batch = append(batch, it.entry)
		if len(batch) >= a.batchSize {
			flush()
		}
	}

	for it := range a.ch {
		add(it)
		// Coalesce whatever is already queued into the same batch.
	more:
		for len(batch) < a.batchSize {
			select {
			case next, ok := <-a.ch:
				if !ok {
					break more
				}
				add(next)
			default:
				break more
			}
		}
		flush()
	}
	flush()
	if a.discarded > 0 {
		a.errFunc(&DrainError{Discarded: a.discarded})
	}
}
