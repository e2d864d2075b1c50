// Package eventlog implements the append-only, sequence-numbered log that
// backs the Pebble engine.
//
// A named log lives under two key families:
//   - log/{name}/m           metadata: last assigned sequence
//   - log/{name}/e/{seq_be8} entries
//
// Records are stored as: uvarint headerLen | header | payload | crc32c(header|payload).
// Sequence numbers start at 1, strictly increase, and are never reused, even
// after every entry has been deleted.
//
//	l, _ := eventlog.Open(db, "events")
//	seqs, _ := l.Append(ctx, []eventlog.AppendRecord{{Header: h, Payload: p}})
//	_ = l.Scan(ctx, eventlog.ScanOptions{Reverse: true}, func(it eventlog.Item) (bool, error) {
//	    return true, nil
//	})
//	_, _ = l.DeleteThrough(ctx, seqs[0])
//	_, _ = l.TrimOlderThan(ctx, cutoffMs, 1024, tsExtractor)
package eventlog
