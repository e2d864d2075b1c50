// Package pebblestore wraps the Pebble database that backs the default log
// engine: fsync policy, batches, range deletes, compaction, and a metrics hook.
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: filepath.Join(dir, "logs.pebble"),
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set(key, value, nil)
//	_ = db.CommitBatch(ctx, b)
//	b.Close()
package pebblestore
