package eventlog

import "context"

// RewriteFunc returns a replacement header and payload for an entry, or
// ok=false to leave it untouched.
type RewriteFunc func(it Item) (header, payload []byte, ok bool)

// Rewrite replaces entries in place, keeping their sequences. Writes are
// committed every batchLimit entries. Deletions wait until Rewrite returns,
// so an entry removed mid-scan is never written back.
func (l *Log) Rewrite(ctx context.Context, batchLimit int, fn RewriteFunc) (int, error) {
	l.maint.Lock()
	defer l.maint.Unlock()
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}
	total := 0
	b := l.db.NewBatch()
	n := 0
	commit := func() error {
		defer func() {
			b.Close()
			b = l.db.NewBatch()
		}()
		if n == 0 {
			return nil
		}
		if err := l.db.CommitBatch(ctx, b); err != nil {
			return err
		}
		total += n
		n = 0
		return nil
	}
	err := l.Scan(ctx, ScanOptions{}, func(it Item) (bool, error) {
		h, p, ok := fn(it)
		if !ok {
			return true, nil
		}
		if err := b.Set(KeyEntry(l.name, it.Seq), EncodeRecord(h, p), nil); err != nil {
			return false, err
		}
		n++
		if n >= batchLimit {
			return true, commit()
		}
		return true, nil
	})
	if err == nil {
		err = commit()
	}
	b.Close()
	return total, err
}
