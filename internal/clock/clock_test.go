package clock

import "testing"

func TestMonotonicClampsRegression(t *testing.T) {
	times := []int64{100, 105, 90, 110}
	i := 0
	c := NewMonotonic(func() int64 { v := times[i]; i++; return v })

	want := []int64{100, 105, 105, 110}
	for n, w := range want {
		if got := c.Next(); got != w {
			t.Fatalf("step %d: want %d got %d", n, w, got)
		}
	}
}

func TestMonotonicObserve(t *testing.T) {
	c := NewMonotonic(func() int64 { return 50 })
	c.Observe(80)
	if got := c.Next(); got != 80 {
		t.Fatalf("want floor 80, got %d", got)
	}
	if got := c.Wall(); got != 50 {
		t.Fatalf("wall should be unclamped, got %d", got)
	}
}

func TestDefaultNow(t *testing.T) {
	orig := NowMs
	t.Cleanup(func() { NowMs = orig })
	NowMs = func() int64 { return 42 }
	if got := NewMonotonic(nil).Next(); got != 42 {
		t.Fatalf("want 42, got %d", got)
	}
}
