package eventlog

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	pebblestore "github.com/rzbill/logbook/internal/storage/pebble"
)

// AppendRecord is a single appendable entry.
type AppendRecord struct {
	Header  []byte
	Payload []byte
}

// Log is a named append-only log.
type Log struct {
	db   *pebblestore.DB
	name string

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
	hook     TrimHook

	// maint serializes rewrites and deletions. Append does not take it.
	maint sync.Mutex
}

// Open loads the log's last sequence from metadata, if any.
func Open(db *pebblestore.DB, name string) (*Log, error) {
	l := &Log{db: db, name: name, notifyCh: make(chan struct{}), hook: noopHook{}}
	meta, err := db.Get(KeyMeta(name))
	switch {
	case err == nil:
		if len(meta) < 8 {
			return nil, fmt.Errorf("eventlog: %s: %w", name, ErrCorrupt)
		}
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case pebblestore.IsNotFound(err):
	default:
		return nil, err
	}
	return l, nil
}

// Name returns the log name.
func (l *Log) Name() string { return l.name }

// LastSeq returns the most recently assigned sequence, 0 when nothing was ever appended.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// SetTrimHook installs a hook called after deletions. Nil restores the no-op.
func (l *Log) SetTrimHook(h TrimHook) {
	if h == nil {
		h = noopHook{}
	}
	l.mu.Lock()
	l.hook = h
	l.mu.Unlock()
}

func (l *Log) trimHook() TrimHook {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hook
}

// Append writes recs as one atomic batch and returns their sequences.
func (l *Log) Append(ctx context.Context, recs []AppendRecord) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	next := l.lastSeq
	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		next++
		if err := b.Set(KeyEntry(l.name, next), EncodeRecord(r.Header, r.Payload), nil); err != nil {
			return nil, err
		}
		seqs[i] = next
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], next)
	if err := b.Set(KeyMeta(l.name), meta[:], nil); err != nil {
		return nil, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	l.lastSeq = next

	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seqs, nil
}
