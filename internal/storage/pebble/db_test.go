package pebblestore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
)

type countingHook struct {
	readBytes int
	commits   int
	ops       int
	bytes     int
}

func (h *countingHook) ObserveRead(_ time.Duration, n int) { h.readBytes += n }
func (h *countingHook) ObserveBatchCommit(_ time.Duration, ops, n int) {
	h.commits++
	h.ops += ops
	h.bytes += n
}

func openTestDB(t *testing.T, mode FsyncMode) (*DB, *countingHook) {
	t.Helper()
	hook := &countingHook{}
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: mode, FsyncInterval: time.Millisecond, Metrics: hook})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, hook
}

func commit(t *testing.T, db *DB, kv ...string) {
	t.Helper()
	b := db.NewBatch()
	defer b.Close()
	for i := 0; i+1 < len(kv); i += 2 {
		if err := b.Set([]byte(kv[i]), []byte(kv[i+1]), nil); err != nil {
			t.Fatalf("batch set: %v", err)
		}
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error without DataDir")
	}
}

func TestCommitAndGetPerFsyncMode(t *testing.T) {
	for _, mode := range []FsyncMode{FsyncModeUnspecified, FsyncModeAlways, FsyncModeInterval, FsyncModeNever} {
		t.Run(fmt.Sprint(mode), func(t *testing.T) {
			db, hook := openTestDB(t, mode)
			commit(t, db, "l/e/1", "first", "l/e/2", "second")

			if hook.commits != 1 || hook.ops != 2 || hook.bytes <= 0 {
				t.Fatalf("unexpected commit metrics: %+v", *hook)
			}
			got, err := db.Get([]byte("l/e/2"))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != "second" {
				t.Fatalf("got %q", got)
			}
			if hook.readBytes != len("second") {
				t.Fatalf("read bytes = %d", hook.readBytes)
			}
			if _, err := db.Get([]byte("l/e/3")); !IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestCommitRejectsNilBatch(t *testing.T) {
	db, _ := openTestDB(t, FsyncModeNever)
	if err := db.CommitBatch(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil batch")
	}
}

func TestCommitHonorsCanceledContext(t *testing.T) {
	db, hook := openTestDB(t, FsyncModeNever)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := db.NewBatch()
	defer b.Close()
	_ = b.Set([]byte("k"), []byte("v"), nil)
	if err := db.CommitBatch(ctx, b); err == nil {
		t.Fatalf("expected context error")
	}
	if _, err := db.Get([]byte("k")); !IsNotFound(err) {
		t.Fatalf("batch should not have been applied")
	}
	if hook.commits != 0 {
		t.Fatalf("canceled commit was observed")
	}
}

func TestDeleteRangeAndCompact(t *testing.T) {
	db, _ := openTestDB(t, FsyncModeNever)
	commit(t, db, "e/1", "x", "e/2", "x", "e/3", "x", "f/1", "x")

	if err := db.DeleteRange(context.Background(), []byte("e/1"), []byte("e/3")); err != nil {
		t.Fatalf("delete range: %v", err)
	}
	for k, want := range map[string]bool{"e/1": false, "e/2": false, "e/3": true, "f/1": true} {
		_, err := db.Get([]byte(k))
		if exists := err == nil; exists != want {
			t.Fatalf("%s: exists=%v want %v", k, exists, want)
		}
	}
	if err := db.CompactRange([]byte("e/"), []byte("f/")); err != nil {
		t.Fatalf("compact: %v", err)
	}
}

func TestIterBounds(t *testing.T) {
	db, _ := openTestDB(t, FsyncModeNever)
	commit(t, db, "a/1", "x", "b/1", "1", "b/2", "2", "c/1", "x")

	it, err := db.NewIter(&pebble.IterOptions{LowerBound: []byte("b/"), UpperBound: []byte("c/")})
	if err != nil {
		t.Fatalf("iter: %v", err)
	}
	defer it.Close()
	var keys []string
	for it.First(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if len(keys) != 2 || keys[0] != "b/1" || keys[1] != "b/2" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Options{DataDir: dir, Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	commit(t, db, "meta", "7")
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = Open(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if db.Dir() != dir {
		t.Fatalf("dir = %q", db.Dir())
	}
	got, err := db.Get([]byte("meta"))
	if err != nil || string(got) != "7" {
		t.Fatalf("get after reopen: %q %v", got, err)
	}
}

func TestCloseNil(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}

func TestParseFsyncMode(t *testing.T) {
	cases := map[string]FsyncMode{
		"always":   FsyncModeAlways,
		"interval": FsyncModeInterval,
		"never":    FsyncModeNever,
		"":         FsyncModeUnspecified,
		"sometime": FsyncModeUnspecified,
	}
	for in, want := range cases {
		if got := ParseFsyncMode(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}
