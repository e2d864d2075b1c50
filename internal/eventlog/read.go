package eventlog

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"
)

// ScanOptions bounds a scan by sequence. Zero bounds are open.
type ScanOptions struct {
	From    uint64 // inclusive
	To      uint64 // inclusive
	Reverse bool
}

// Item is a decoded entry.
type Item struct {
	Seq     uint64
	Header  []byte
	Payload []byte
	// Size is the stored value length, framing included.
	Size int
}

// ErrStop can be returned from a scan callback to end the scan without error.
var ErrStop = errors.New("eventlog: stop scan")

func (l *Log) bounds(from, to uint64) *pebble.IterOptions {
	lower := KeyEntryPrefix(l.name)
	if from > 0 {
		lower = KeyEntry(l.name, from)
	}
	var upper []byte
	if to > 0 && to < ^uint64(0) {
		upper = KeyEntry(l.name, to+1)
	} else {
		// first key past every entry of this log
		upper = KeyEntryPrefix(l.name)
		upper[len(upper)-1]++
	}
	return &pebble.IterOptions{LowerBound: lower, UpperBound: upper}
}

// Scan visits entries in sequence order, descending when Reverse is set, until
// fn returns false or an error. Corrupt entries are skipped.
func (l *Log) Scan(ctx context.Context, opts ScanOptions, fn func(Item) (bool, error)) error {
	if opts.To > 0 && opts.From > opts.To {
		return nil
	}
	iter, err := l.db.NewIter(l.bounds(opts.From, opts.To))
	if err != nil {
		return err
	}
	defer iter.Close()

	valid, step := iter.First, iter.Next
	if opts.Reverse {
		valid, step = iter.Last, iter.Prev
	}
	for ok := valid(); ok; ok = step() {
		if err := ctx.Err(); err != nil {
			return err
		}
		val := iter.Value()
		h, p, err := DecodeRecord(val)
		if err != nil {
			continue
		}
		cont, err := fn(Item{Seq: seqFromKey(iter.Key()), Header: h, Payload: p, Size: len(val)})
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return iter.Error()
}

// First returns the oldest entry.
func (l *Log) First(ctx context.Context) (Item, bool, error) {
	var out Item
	found := false
	err := l.Scan(ctx, ScanOptions{}, func(it Item) (bool, error) {
		out, found = it, true
		return false, nil
	})
	return out, found, err
}
