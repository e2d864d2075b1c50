// Package shipper uploads stored events to a Publisher and prunes what was
// delivered.
package shipper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/pkg/log"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 500

// Publisher delivers a batch of events. A batch is pruned only after Publish
// returns nil.
type Publisher interface {
	Publish(ctx context.Context, events []model.LogEvent) error
}

// Source is the store being shipped from.
type Source interface {
	GetLogs(ctx context.Context, q model.Query) ([]model.LogEvent, error)
	DeleteLogs(ctx context.Context, q model.DeleteQuery) error
}

type Options struct {
	BatchSize int
	// Tags limits shipping to these tags. Other tags interleave with shipped
	// ids, so a tag-filtered shipper keeps an id cursor instead of pruning.
	Tags   []string
	Logger log.Logger
}

type Shipper struct {
	src    Source
	pub    Publisher
	batch  int
	tags   []string
	logger log.Logger

	mu     sync.Mutex
	cursor uint64
}

func New(src Source, pub Publisher, opts Options) *Shipper {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	return &Shipper{
		src:    src,
		pub:    pub,
		batch:  opts.BatchSize,
		tags:   opts.Tags,
		logger: opts.Logger.With(log.Component("shipper")),
	}
}

// RunOnce ships the oldest batch and deletes it. It returns the number of
// events shipped.
func (s *Shipper) RunOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evs, err := s.src.GetLogs(ctx, model.Query{
		Order:   model.OrderAsc,
		Limit:   s.batch,
		Tags:    s.tags,
		AfterID: s.cursor,
	})
	if err != nil {
		return 0, fmt.Errorf("shipper: read: %w", err)
	}
	if len(evs) == 0 {
		return 0, nil
	}
	if err := s.pub.Publish(ctx, evs); err != nil {
		return 0, fmt.Errorf("shipper: publish: %w", err)
	}
	last := evs[len(evs)-1].ID
	if len(s.tags) > 0 {
		s.cursor = last
		return len(evs), nil
	}
	if err := s.src.DeleteLogs(ctx, model.DeleteQuery{MaxID: last}); err != nil {
		// already published; skip it next time even though it is still stored
		s.cursor = last
		return len(evs), fmt.Errorf("shipper: prune: %w", err)
	}
	return len(evs), nil
}

// Cursor returns the id of the last event shipped without pruning.
func (s *Shipper) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Drain ships batches until the store has nothing left to ship.
func (s *Shipper) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := s.RunOnce(ctx)
		total += n
		if err != nil || n < s.batch {
			return total, err
		}
	}
}

// Run drains the store every interval until ctx is done. Errors are logged
// and retried on the next tick.
func (s *Shipper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := s.Drain(ctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("ship failed", log.Err(err))
		} else if n > 0 {
			s.logger.Debug("shipped", log.Int("events", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
