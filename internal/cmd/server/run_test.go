package serverrun

import (
	"context"
	"net"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/logbook/internal/config"
	"github.com/rzbill/logbook/internal/metrics"
	logpkg "github.com/rzbill/logbook/pkg/log"
)

func testConfig(t *testing.T) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Fsync = "never"
	return cfg
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine = "bolt"
	err := Run(context.Background(), Options{Config: cfg, Logger: logpkg.NewNop(), Counters: metrics.NewTestCounters()})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

// TestRunIntegration starts both servers on ephemeral ports and stops them
// through the context.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	for _, engine := range []string{"pebble", "sqlite"} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Engine = engine
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			if err := Run(ctx, Options{Config: cfg, Logger: logpkg.NewNop(), Counters: metrics.NewTestCounters()}); err != nil {
				t.Fatalf("Run: %v", err)
			}
		})
	}
}

func TestRunReportsBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := testConfig(t)
	cfg.HTTP.Addr = busy.Addr().String()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = Run(ctx, Options{Config: cfg, Logger: logpkg.NewNop(), Counters: metrics.NewTestCounters()})
	if err == nil {
		t.Fatal("expected bind error")
	}
	if ctx.Err() != nil {
		t.Fatal("Run should return before the deadline")
	}
}
