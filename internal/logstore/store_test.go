package logstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/logbook/internal/metrics"
	"github.com/rzbill/logbook/internal/model"
	pebblestore "github.com/rzbill/logbook/internal/storage/pebble"
	"github.com/rzbill/logbook/internal/storetest"
	"github.com/rzbill/logbook/internal/writer"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() int64) storetest.Backend {
		return New(Options{NowMs: now})
	})
}

func newConfigured(t *testing.T, opts Options) (*Store, string) {
	t.Helper()
	s := New(opts)
	t.Cleanup(func() { _ = s.Close() })
	dir := t.TempDir()
	require.NoError(t, s.Configure(context.Background(), model.StoreOptions{LogFileDir: dir}))
	return s, dir
}

func TestDBFilePathDefaultName(t *testing.T) {
	s, dir := newConfigured(t, Options{})
	p, err := s.DBFilePath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultDirName), p)
}

func TestWriteErrorsReported(t *testing.T) {
	var mu sync.Mutex
	var got []error
	s := New(Options{OnError: func(err error) {
		mu.Lock()
		got = append(got, err)
		mu.Unlock()
	}})
	s.Write(model.LevelInfo, "too early", "")
	require.NoError(t, s.Close())
	s.Write(model.LevelInfo, "too late", "")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0], model.ErrNotConfigured)
	assert.ErrorIs(t, got[1], model.ErrClosed)
}

func TestCountersTrackWritesAndDeletes(t *testing.T) {
	c := metrics.NewTestCounters()
	s, _ := newConfigured(t, Options{Counters: c})
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		s.Write(model.LevelWarning, "w", "")
	}
	evs, err := s.GetLogs(ctx, model.Query{})
	require.NoError(t, err)
	require.NoError(t, s.DeleteLogs(ctx, model.DeleteQuery{MaxID: evs[1].ID}))

	expected := `
# HELP logbook_events_deleted_total Events removed by retention or explicit deletion
# TYPE logbook_events_deleted_total counter
logbook_events_deleted_total{engine="pebble",reason="delete"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected), "logbook_events_deleted_total"))
	written := `
# HELP logbook_events_written_total Events appended to the store
# TYPE logbook_events_written_total counter
logbook_events_written_total{engine="pebble",level="warn"} 4
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(written), "logbook_events_written_total"))
}

func TestWaitForAppend(t *testing.T) {
	s, _ := newConfigured(t, Options{})
	done := make(chan bool, 1)
	go func() { done <- s.WaitForAppend(context.Background(), 2*time.Second) }()
	time.Sleep(50 * time.Millisecond)
	s.Write(model.LevelInfo, "wake", "")
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatalf("waiter not woken")
	}
	assert.False(t, s.WaitForAppend(context.Background(), 20*time.Millisecond))
}

func TestFailedReconfigureKeepsPrevious(t *testing.T) {
	s, dir := newConfigured(t, Options{})
	ctx := context.Background()
	s.Write(model.LevelInfo, "kept", "")
	require.NoError(t, s.Flush(ctx))

	// a regular file where the store directory should go
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, writeFile(blocker))
	err := s.Configure(ctx, model.StoreOptions{LogFileDir: blocker})
	require.Error(t, err)

	p, err := s.DBFilePath(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultDirName), p)
	evs, err := s.GetLogs(ctx, model.Query{})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "kept", evs[0].Message)
}

func TestMaxSizeBudgetOnCleanUp(t *testing.T) {
	s := New(Options{})
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Configure(ctx, model.StoreOptions{LogFileDir: t.TempDir(), MaxSizeBytes: 200}))
	for i := 0; i < 20; i++ {
		s.Write(model.LevelInfo, "0123456789", "")
	}
	require.NoError(t, s.CleanUp(ctx, model.CleanUpOptions{}))
	evs, err := s.GetLogs(ctx, model.Query{})
	require.NoError(t, err)
	assert.Less(t, len(evs), 20)
	assert.NotEmpty(t, evs)
	// survivors are the newest events
	assert.Equal(t, uint64(20), evs[len(evs)-1].ID)
}

func TestCanceledQuery(t *testing.T) {
	s, _ := newConfigured(t, Options{})
	s.Write(model.LevelInfo, "x", "")
	require.NoError(t, s.Flush(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.GetLogs(ctx, model.Query{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}

// slowDrainStore buffers everything and commits one fsynced event per batch,
// so Close and re-Configure run into the drain timeout.
func slowDrainStore(discarded *atomic.Int64) *Store {
	wopts := []writer.Option{
		writer.WithBufferSize(5000),
		writer.WithBatchSize(1),
		writer.WithDrainTimeout(20 * time.Millisecond),
	}
	onError := func(err error) {
		var de *writer.DrainError
		if errors.As(err, &de) {
			discarded.Add(int64(de.Discarded))
		}
	}
	return New(Options{Fsync: pebblestore.FsyncModeAlways, Writer: wopts, OnError: onError})
}

func countStored(t *testing.T, dir string) int {
	t.Helper()
	s := New(Options{})
	defer s.Close()
	require.NoError(t, s.Configure(context.Background(), model.StoreOptions{LogFileDir: dir}))
	evs, err := s.GetLogs(context.Background(), model.Query{})
	require.NoError(t, err)
	return len(evs)
}

func TestCloseWithFullBufferDoesNotOutliveDB(t *testing.T) {
	var discarded atomic.Int64
	s := slowDrainStore(&discarded)
	dir := t.TempDir()
	require.NoError(t, s.Configure(context.Background(), model.StoreOptions{LogFileDir: dir}))
	for i := 0; i < 5000; i++ {
		s.Write(model.LevelInfo, "pending", "")
	}

	err := s.Close()
	if err != nil {
		require.ErrorIs(t, err, writer.ErrDrainTimeout)
	}
	assert.Equal(t, 5000, countStored(t, dir)+int(discarded.Load()))
}

func TestReconfigureWithFullBufferDoesNotOutliveDB(t *testing.T) {
	var discarded atomic.Int64
	s := slowDrainStore(&discarded)
	first, second := t.TempDir(), t.TempDir()
	require.NoError(t, s.Configure(context.Background(), model.StoreOptions{LogFileDir: first}))
	for i := 0; i < 5000; i++ {
		s.Write(model.LevelInfo, "pending", "")
	}

	require.NoError(t, s.Configure(context.Background(), model.StoreOptions{LogFileDir: second}))
	s.Write(model.LevelInfo, "after move", "")
	require.NoError(t, s.Flush(context.Background()))
	require.NoError(t, s.Close())

	assert.Equal(t, 5000, countStored(t, first)+int(discarded.Load()))
	assert.Equal(t, 1, countStored(t, second))
}
