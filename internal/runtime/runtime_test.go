package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/logbook/internal/config"
	"github.com/rzbill/logbook/internal/metrics"
	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/pkg/logbook"
)

func testConfig(t *testing.T, engine string) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Engine = engine
	return cfg
}

func openTest(t *testing.T, opts Options) *Runtime {
	t.Helper()
	rt, err := Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestOpenCloseHealth(t *testing.T) {
	for _, engine := range []string{"pebble", "sqlite"} {
		t.Run(engine, func(t *testing.T) {
			rt := openTest(t, Options{Config: testConfig(t, engine)})
			if err := rt.CheckHealth(context.Background()); err != nil {
				t.Fatalf("health: %v", err)
			}
			if err := rt.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if err := rt.Close(); err != nil {
				t.Fatalf("second close: %v", err)
			}
			if err := rt.CheckHealth(context.Background()); err == nil {
				t.Fatalf("expected health failure after close")
			}
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "mongo")
	if _, err := Open(context.Background(), Options{Config: cfg}); err == nil {
		t.Fatalf("expected error")
	}
	cfg = testConfig(t, "pebble")
	cfg.Store.LogLevel = "loud"
	if _, err := Open(context.Background(), Options{Config: cfg}); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestLevelAndTagFromConfig(t *testing.T) {
	cfg := testConfig(t, "pebble")
	cfg.Store.LogLevel = "warn"
	cfg.Store.DefaultTag = "daemon"
	rt := openTest(t, Options{Config: cfg, Counters: metrics.NewTestCounters()})
	lb := rt.Logger()
	ctx := context.Background()

	lb.Info("dropped")
	lb.Error("kept")
	evs, err := lb.GetLogs(ctx, logbook.Query{Tags: []string{"daemon"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(evs) != 1 || evs[0].Message != "kept" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if lb.ConsoleCaptureEnabled() {
		t.Fatalf("daemon must not capture a console")
	}
}

func TestWaitForAppend(t *testing.T) {
	for _, engine := range []string{"pebble", "sqlite"} {
		t.Run(engine, func(t *testing.T) {
			rt := openTest(t, Options{Config: testConfig(t, engine)})
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if rt.WaitForAppend(ctx, time.Second) {
				t.Fatalf("canceled wait should report false")
			}
		})
	}
}

type memPublisher struct {
	mu  sync.Mutex
	got []model.LogEvent
}

func (p *memPublisher) Publish(_ context.Context, evs []model.LogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, evs...)
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func TestShipperRunsWithPublisher(t *testing.T) {
	cfg := testConfig(t, "pebble")
	cfg.Ship.Interval = 1
	pub := &memPublisher{}
	rt := openTest(t, Options{Config: cfg, Publisher: pub})
	rt.Logger().Info("ship me")

	deadline := time.Now().Add(5 * time.Second)
	for pub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("event not shipped")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
