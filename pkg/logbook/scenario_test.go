package logbook_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/logbook/pkg/logbook"
)

var engines = []string{logbook.EnginePebble, logbook.EngineSQLite}

func forEachEngine(t *testing.T, fn func(t *testing.T, engine string)) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) { fn(t, engine) })
	}
}

func newLogger(t *testing.T, engine string, opts ...logbook.ConfigureOption) (*logbook.Logger, *logbook.Console) {
	t.Helper()
	console := logbook.NewConsole(logbook.DiscardSink)
	backend, err := logbook.NewBackend(engine, logbook.BackendOptions{})
	require.NoError(t, err)
	l := logbook.New(backend, logbook.WithConsole(console))
	t.Cleanup(func() { _ = l.Close() })
	opts = append([]logbook.ConfigureOption{logbook.WithLogFileDir(t.TempDir())}, opts...)
	require.NoError(t, l.Configure(context.Background(), opts...))
	return l, console
}

func TestInfoThreshold(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine string) {
		l, _ := newLogger(t, engine, logbook.WithLogLevel(logbook.LevelInfo))
		ctx := context.Background()

		l.Debug("d")
		l.Info("i")
		l.Warn("w")

		evs, err := l.GetLogs(ctx, logbook.Query{})
		require.NoError(t, err)
		require.Len(t, evs, 2)
		assert.Equal(t, "i", evs[0].Message)
		assert.Equal(t, logbook.LevelInfo, evs[0].Level)
		assert.Equal(t, "w", evs[1].Message)
		assert.Equal(t, logbook.LevelWarning, evs[1].Level)
	})
}

func TestLimitThenDeleteThroughID(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine string) {
		l, _ := newLogger(t, engine)
		ctx := context.Background()

		for i := 0; i < 25; i++ {
			l.Info("event")
		}
		first, err := l.GetLogs(ctx, logbook.Query{Limit: 20})
		require.NoError(t, err)
		require.Len(t, first, 20)

		require.NoError(t, l.DeleteLogs(ctx, logbook.DeleteQuery{MaxID: first[19].ID}))
		rest, err := l.GetLogs(ctx, logbook.Query{})
		require.NoError(t, err)
		require.Len(t, rest, 5)
		assert.Greater(t, rest[0].ID, first[19].ID)
	})
}

func TestConsoleCaptureStoresTaggedCalls(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine string) {
		l, console := newLogger(t, engine)
		ctx := context.Background()

		console.Tag("T").Info("tagged", 1)
		console.Warn("untagged")

		evs, err := l.GetLogs(ctx, logbook.Query{Tags: []string{"T"}})
		require.NoError(t, err)
		require.Len(t, evs, 1)
		assert.Equal(t, "tagged 1", evs[0].Message)

		evs, err = l.GetLogs(ctx, logbook.Query{Tags: []string{logbook.DefaultTag}})
		require.NoError(t, err)
		require.Len(t, evs, 1)
		assert.Equal(t, "untagged", evs[0].Message)
		assert.Equal(t, logbook.LevelWarning, evs[0].Level)
	})
}

func TestCaptureDisabledByOption(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine string) {
		l, console := newLogger(t, engine, logbook.WithCaptureConsole(false))
		console.Error("not stored")
		evs, err := l.GetLogs(context.Background(), logbook.Query{})
		require.NoError(t, err)
		assert.Empty(t, evs)
	})
}

func TestUnknownEngine(t *testing.T) {
	_, err := logbook.NewBackend("mongo", logbook.BackendOptions{})
	assert.Error(t, err)
}
