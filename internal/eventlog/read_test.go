package eventlog

import (
	"context"
	"errors"
	"testing"
)

func seedLog(t *testing.T, n int) (*Log, []uint64) {
	t.Helper()
	l := newTestLog(t)
	recs := make([]AppendRecord, n)
	for i := 0; i < n; i++ {
		recs[i] = AppendRecord{Header: []byte{byte(i)}, Payload: []byte{byte(i)}}
	}
	seqs, err := l.Append(context.Background(), recs)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return l, seqs
}

func collect(t *testing.T, l *Log, opts ScanOptions, limit int) []uint64 {
	t.Helper()
	var out []uint64
	err := l.Scan(context.Background(), opts, func(it Item) (bool, error) {
		out = append(out, it.Seq)
		return limit == 0 || len(out) < limit, nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestScanForward(t *testing.T) {
	l, seqs := seedLog(t, 5)
	got := collect(t, l, ScanOptions{}, 3)
	if len(got) != 3 || got[0] != seqs[0] || got[2] != seqs[2] {
		t.Fatalf("unexpected seqs %v", got)
	}
}

func TestScanReverse(t *testing.T) {
	l, seqs := seedLog(t, 4)
	got := collect(t, l, ScanOptions{Reverse: true}, 2)
	if len(got) != 2 || got[0] != seqs[3] || got[1] != seqs[2] {
		t.Fatalf("unexpected reverse order %v", got)
	}
}

func TestScanBounds(t *testing.T) {
	l, _ := seedLog(t, 6)
	got := collect(t, l, ScanOptions{From: 2, To: 4}, 0)
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("unexpected bounded scan %v", got)
	}
	got = collect(t, l, ScanOptions{From: 3, To: 5, Reverse: true}, 0)
	if len(got) != 3 || got[0] != 5 || got[2] != 3 {
		t.Fatalf("unexpected reverse bounded scan %v", got)
	}
	if got := collect(t, l, ScanOptions{From: 5, To: 2}, 0); len(got) != 0 {
		t.Fatalf("inverted bounds should be empty, got %v", got)
	}
}

func TestScanStopAndError(t *testing.T) {
	l, _ := seedLog(t, 3)
	n := 0
	err := l.Scan(context.Background(), ScanOptions{}, func(Item) (bool, error) {
		n++
		return true, ErrStop
	})
	if err != nil || n != 1 {
		t.Fatalf("ErrStop should end the scan cleanly: n=%d err=%v", n, err)
	}
	boom := errors.New("boom")
	err = l.Scan(context.Background(), ScanOptions{}, func(Item) (bool, error) { return true, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Scan(ctx, ScanOptions{}, func(Item) (bool, error) { return true, nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestFirst(t *testing.T) {
	l := newTestLog(t)
	if _, ok, _ := l.First(context.Background()); ok {
		t.Fatalf("empty log has no first entry")
	}
	_, _ = l.Append(context.Background(), []AppendRecord{{Payload: []byte("a")}, {Payload: []byte("b")}})
	it, ok, err := l.First(context.Background())
	if err != nil || !ok || string(it.Payload) != "a" {
		t.Fatalf("first = %+v ok=%v err=%v", it, ok, err)
	}
}
