package eventlog

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

func TestRewriteKeepsSequences(t *testing.T) {
	l, _ := seedLog(t, 5)
	n, err := l.Rewrite(context.Background(), 2, func(it Item) ([]byte, []byte, bool) {
		if it.Seq%2 == 0 {
			return nil, nil, false
		}
		return it.Header, append([]byte("r"), it.Payload...), true
	})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rewritten, got %d", n)
	}
	err = l.Scan(context.Background(), ScanOptions{}, func(it Item) (bool, error) {
		rewritten := bytes.HasPrefix(it.Payload, []byte("r"))
		if rewritten != (it.Seq%2 == 1) {
			t.Fatalf("seq %d rewritten=%v", it.Seq, rewritten)
		}
		return true, nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if l.LastSeq() != 5 {
		t.Fatalf("rewrite must not assign sequences")
	}
}

func TestDeleteDuringRewriteStaysDeleted(t *testing.T) {
	l, seqs := seedLog(t, 50)
	last := seqs[len(seqs)-1]

	var once sync.Once
	deleted := make(chan error, 1)
	n, err := l.Rewrite(context.Background(), 10, func(it Item) ([]byte, []byte, bool) {
		once.Do(func() {
			go func() {
				_, err := l.DeleteThrough(context.Background(), last)
				deleted <- err
			}()
			// give the delete a chance to commit mid-scan
			time.Sleep(50 * time.Millisecond)
		})
		return it.Header, append([]byte("r"), it.Payload...), true
	})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if n != 50 {
		t.Fatalf("expected 50 rewritten, got %d", n)
	}
	select {
	case err := <-deleted:
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("delete never ran")
	}
	if left := count(t, l); left != 0 {
		t.Fatalf("%d entries came back after delete", left)
	}
}
