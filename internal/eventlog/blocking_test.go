package eventlog

import (
	"context"
	"testing"
	"time"
)

func TestWaitForAppendWake(t *testing.T) {
	l := newTestLog(t)

	done := make(chan bool, 1)
	go func() {
		done <- l.WaitForAppend(context.Background(), 2*time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	if _, err := l.Append(context.Background(), []AppendRecord{{Payload: []byte("x")}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("expected wake by append")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for waiter to wake")
	}
}

func TestWaitForAppendTimeout(t *testing.T) {
	l := newTestLog(t)
	if l.WaitForAppend(context.Background(), 50*time.Millisecond) {
		t.Fatalf("expected timeout")
	}
}

func TestWaitForAppendContext(t *testing.T) {
	l := newTestLog(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if l.WaitForAppend(ctx, 0) {
		t.Fatalf("expected context to end the wait")
	}
}
