package log

import (
	"bytes"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{"WARN", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err=%v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("%q: want %v got %v", tt.in, tt.want, got)
		}
	}
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(WarnLevel), WithOutput(&buf))
	l.Info("hidden")
	l.Warn("shown", Str("k", "v"))
	_ = l.Sync()
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"k": "v"`) {
		t.Fatalf("expected warn entry with field: %s", out)
	}

	l.SetLevel(DebugLevel)
	if l.GetLevel() != DebugLevel {
		t.Fatalf("set level not applied")
	}
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("debug should pass after SetLevel")
	}
}

func TestJSONFormatWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithJSON(), WithOutput(&buf)).With(Component("store"))
	l.Error("boom", Int("n", 3))
	out := buf.String()
	for _, want := range []string{`"component":"store"`, `"msg":"boom"`, `"n":3`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}

func TestApplyConfigFileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "diag.log")
	l, err := ApplyConfig(&Config{Level: "info", Format: "json", File: file, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	l.Info("to file")
	_ = l.Sync()
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "to file") {
		t.Fatalf("file output missing entry: %s", b)
	}
	if _, err := ApplyConfig(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for bad level")
	}
}

func TestRedirectStdLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))
	restore := RedirectStdLog(l)
	stdlog.Print("from stdlib")
	restore()
	if !strings.Contains(buf.String(), "from stdlib") {
		t.Fatalf("stdlib output not redirected: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	if l.With(Str("a", "b")) == nil {
		t.Fatalf("With should return a logger")
	}
}
