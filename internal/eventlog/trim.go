package eventlog

import (
	"context"

	"github.com/cockroachdb/pebble"
)

// TrimHook observes deletions. minSeq and maxSeq bound the deleted batch;
// the range may contain gaps.
type TrimHook interface {
	OnTrim(reason string, minSeq, maxSeq uint64, n int)
}

type noopHook struct{}

func (noopHook) OnTrim(string, uint64, uint64, int) {}

// Trim reasons passed to TrimHook.
const (
	ReasonAge    = "age"
	ReasonSize   = "size"
	ReasonDelete = "delete"
)

// HeaderTimestampExtractor reads a write timestamp (ms) from an entry header.
type HeaderTimestampExtractor func(header []byte) (int64, bool)

const defaultBatchLimit = 1024

// deleter accumulates point deletes and commits them every limit keys.
type deleter struct {
	l      *Log
	reason string
	limit  int
	b      *pebble.Batch
	n      int
	total  int
	minSeq uint64
	maxSeq uint64
}

func (l *Log) newDeleter(reason string, limit int) *deleter {
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	return &deleter{l: l, reason: reason, limit: limit}
}

func (d *deleter) add(ctx context.Context, seq uint64) error {
	if d.b == nil {
		d.b = d.l.db.NewBatch()
	}
	if err := d.b.Delete(KeyEntry(d.l.name, seq), nil); err != nil {
		return err
	}
	if d.n == 0 {
		d.minSeq = seq
	}
	d.maxSeq = seq
	d.n++
	if d.n >= d.limit {
		return d.flush(ctx)
	}
	return nil
}

func (d *deleter) flush(ctx context.Context) error {
	if d.b == nil {
		return nil
	}
	defer func() {
		d.b.Close()
		d.b = nil
	}()
	if d.n == 0 {
		return nil
	}
	if err := d.l.db.CommitBatch(ctx, d.b); err != nil {
		return err
	}
	d.l.trimHook().OnTrim(d.reason, d.minSeq, d.maxSeq, d.n)
	d.total += d.n
	d.n = 0
	return nil
}

// TrimOlderThan deletes entries whose header timestamp is <= cutoffMs. It
// relies on timestamps being non-decreasing in sequence order and stops at the
// first newer entry.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int, tsx HeaderTimestampExtractor) (int, error) {
	l.maint.Lock()
	defer l.maint.Unlock()
	d := l.newDeleter(ReasonAge, batchLimit)
	err := l.Scan(ctx, ScanOptions{}, func(it Item) (bool, error) {
		ms, ok := tsx(it.Header)
		if !ok || ms > cutoffMs {
			return false, nil
		}
		return true, d.add(ctx, it.Seq)
	})
	if err != nil {
		_ = d.flush(ctx)
		return d.total, err
	}
	err = d.flush(ctx)
	return d.total, err
}

// TrimToMaxBytes deletes the oldest entries until the stored value bytes fit
// within maxBytes. A non-positive budget is a no-op.
func (l *Log) TrimToMaxBytes(ctx context.Context, maxBytes int64, batchLimit int) (int, error) {
	l.maint.Lock()
	defer l.maint.Unlock()
	if maxBytes <= 0 {
		return 0, nil
	}
	var total int64
	if err := l.Scan(ctx, ScanOptions{}, func(it Item) (bool, error) {
		total += int64(it.Size)
		return true, nil
	}); err != nil {
		return 0, err
	}
	if total <= maxBytes {
		return 0, nil
	}

	d := l.newDeleter(ReasonSize, batchLimit)
	err := l.Scan(ctx, ScanOptions{}, func(it Item) (bool, error) {
		if total <= maxBytes {
			return false, nil
		}
		total -= int64(it.Size)
		return true, d.add(ctx, it.Seq)
	})
	if err != nil {
		_ = d.flush(ctx)
		return d.total, err
	}
	err = d.flush(ctx)
	return d.total, err
}

// DeleteThrough removes every entry with seq <= maxSeq using one range
// tombstone. It returns how many entries were removed.
func (l *Log) DeleteThrough(ctx context.Context, maxSeq uint64) (int, error) {
	l.maint.Lock()
	defer l.maint.Unlock()
	if maxSeq == 0 {
		return 0, nil
	}
	var n int
	var minSeq, lastSeq uint64
	if err := l.Scan(ctx, ScanOptions{To: maxSeq}, func(it Item) (bool, error) {
		if n == 0 {
			minSeq = it.Seq
		}
		lastSeq = it.Seq
		n++
		return true, nil
	}); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := l.db.DeleteRange(ctx, KeyEntryPrefix(l.name), KeyEntry(l.name, lastSeq+1)); err != nil {
		return 0, err
	}
	l.trimHook().OnTrim(ReasonDelete, minSeq, lastSeq, n)
	return n, nil
}

// DeleteWhere removes entries within opts for which pred holds.
func (l *Log) DeleteWhere(ctx context.Context, opts ScanOptions, batchLimit int, pred func(Item) bool) (int, error) {
	l.maint.Lock()
	defer l.maint.Unlock()
	opts.Reverse = false
	d := l.newDeleter(ReasonDelete, batchLimit)
	err := l.Scan(ctx, opts, func(it Item) (bool, error) {
		if !pred(it) {
			return true, nil
		}
		return true, d.add(ctx, it.Seq)
	})
	if err != nil {
		_ = d.flush(ctx)
		return d.total, err
	}
	err = d.flush(ctx)
	return d.total, err
}

// Compact asks Pebble to reclaim space held by deleted entries.
func (l *Log) Compact() error {
	upper := KeyEntryPrefix(l.name)
	upper[len(upper)-1]++
	return l.db.CompactRange(KeyEntryPrefix(l.name), upper)
}
