package logstore

import (
	"testing"

	"github.com/rzbill/logbook/internal/model"
)

func TestHeaderRoundtrip(t *testing.T) {
	tests := []header{
		{ts: 1_700_000_000_123, level: model.LevelWarning, tag: "net"},
		{ts: 1, level: model.LevelTrace, flags: flagCompressed},
	}
	for _, want := range tests {
		got, err := decodeHeader(encodeHeader(want))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != want {
			t.Fatalf("got %+v want %+v", got, want)
		}
		if ts, ok := headerTimestamp(encodeHeader(want)); !ok || ts != want.ts {
			t.Fatalf("timestamp extractor returned %d", ts)
		}
	}
}

func TestHeaderRejectsTruncated(t *testing.T) {
	b := encodeHeader(header{ts: 5, level: model.LevelInfo, tag: "abc"})
	if _, err := decodeHeader(b[:len(b)-1]); err == nil {
		t.Fatalf("expected error for truncated tag")
	}
	if _, err := decodeHeader(b[:4]); err == nil {
		t.Fatalf("expected error for short header")
	}
}
