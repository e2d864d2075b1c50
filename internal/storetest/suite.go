// Package storetest holds the behavior every log engine must share. Engines
// call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/internal/writer"
)

// Backend is the engine surface exercised by the suite.
type Backend interface {
	Configure(ctx context.Context, o model.StoreOptions) error
	Write(level model.Level, message, tag string)
	GetLogs(ctx context.Context, q model.Query) ([]model.LogEvent, error)
	DeleteLogs(ctx context.Context, q model.DeleteQuery) error
	DBFilePath(ctx context.Context) (string, error)
	CleanUp(ctx context.Context, o model.CleanUpOptions) error
	Close() error
}

// Factory builds an unconfigured engine whose write clock reads now.
type Factory func(t *testing.T, now func() int64) Backend

// Clock is a settable millisecond clock.
type Clock struct{ ms atomic.Int64 }

func NewClock(start int64) *Clock {
	c := &Clock{}
	c.ms.Store(start)
	return c
}

func (c *Clock) Now() int64          { return c.ms.Load() }
func (c *Clock) Set(ms int64)        { c.ms.Store(ms) }
func (c *Clock) Advance(delta int64) { c.ms.Add(delta) }

const baseMs = int64(1_700_000_000_000)

type harness struct {
	t     *testing.T
	ctx   context.Context
	clock *Clock
	b     Backend
	dir   string
}

func setup(t *testing.T, f Factory, mutate func(*model.StoreOptions)) *harness {
	t.Helper()
	h := &harness{t: t, ctx: context.Background(), clock: NewClock(baseMs), dir: t.TempDir()}
	h.b = f(t, h.clock.Now)
	t.Cleanup(func() { _ = h.b.Close() })
	o := model.StoreOptions{LogFileDir: h.dir}
	if mutate != nil {
		mutate(&o)
	}
	require.NoError(t, h.b.Configure(h.ctx, o))
	return h
}

func (h *harness) write(n int, level model.Level, tag string) {
	for i := 0; i < n; i++ {
		h.b.Write(level, fmt.Sprintf("%s-%d", tag, i), tag)
	}
}

func (h *harness) get(q model.Query) []model.LogEvent {
	h.t.Helper()
	evs, err := h.b.GetLogs(h.ctx, q)
	require.NoError(h.t, err)
	return evs
}

func ids(evs []model.LogEvent) []uint64 {
	out := make([]uint64, len(evs))
	for i, e := range evs {
		out[i] = e.ID
	}
	return out
}

// Run executes the shared engine behavior against f.
func Run(t *testing.T, f Factory) {
	t.Run("NotConfigured", func(t *testing.T) {
		b := f(t, nil)
		t.Cleanup(func() { _ = b.Close() })
		_, err := b.GetLogs(context.Background(), model.Query{})
		assert.ErrorIs(t, err, model.ErrNotConfigured)
		_, err = b.DBFilePath(context.Background())
		assert.ErrorIs(t, err, model.ErrNotConfigured)
	})

	t.Run("ClosedRejectsCalls", func(t *testing.T) {
		h := setup(t, f, nil)
		require.NoError(t, h.b.Close())
		_, err := h.b.GetLogs(h.ctx, model.Query{})
		assert.ErrorIs(t, err, model.ErrClosed)
		assert.ErrorIs(t, h.b.Configure(h.ctx, model.StoreOptions{LogFileDir: h.dir}), model.ErrClosed)
	})

	t.Run("ReadYourWrites", func(t *testing.T) {
		h := setup(t, f, nil)
		h.b.Write(model.LevelInfo, "first", "")
		h.clock.Advance(5)
		h.b.Write(model.LevelWarning, "second", "net")
		h.clock.Advance(-3) // regression is clamped
		h.b.Write(model.LevelError, "third", "")

		evs := h.get(model.Query{})
		require.Len(t, evs, 3)
		assert.Equal(t, []string{"first", "second", "third"}, []string{evs[0].Message, evs[1].Message, evs[2].Message})
		assert.Equal(t, "net", evs[1].Tag)
		assert.Equal(t, model.LevelWarning, evs[1].Level)
		for i := 1; i < len(evs); i++ {
			assert.Greater(t, evs[i].ID, evs[i-1].ID)
			assert.GreaterOrEqual(t, evs[i].Timestamp, evs[i-1].Timestamp)
		}
		assert.Equal(t, baseMs, evs[0].Timestamp)
	})

	t.Run("AscDescAreReverses", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(10, model.LevelInfo, "a")
		asc := h.get(model.Query{Order: model.OrderAsc})
		desc := h.get(model.Query{Order: model.OrderDesc})
		require.Len(t, desc, len(asc))
		for i := range asc {
			assert.Equal(t, asc[i], desc[len(desc)-1-i])
		}
	})

	t.Run("LimitKeepsOldestInAscAndNewestInDesc", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(25, model.LevelInfo, "x")
		all := h.get(model.Query{})
		asc := h.get(model.Query{Limit: 20, Order: model.OrderAsc})
		assert.Equal(t, ids(all[:20]), ids(asc))
		desc := h.get(model.Query{Limit: 3, Order: model.OrderDesc})
		assert.Equal(t, []uint64{all[24].ID, all[23].ID, all[22].ID}, ids(desc))
	})

	t.Run("TwentyFiveTwentyFive", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(25, model.LevelInfo, "s")
		first := h.get(model.Query{Limit: 20, Order: model.OrderAsc})
		require.Len(t, first, 20)
		require.NoError(t, h.b.DeleteLogs(h.ctx, model.DeleteQuery{MaxID: first[19].ID}))
		rest := h.get(model.Query{Limit: 20, Order: model.OrderAsc})
		require.Len(t, rest, 5)
		assert.Equal(t, "s-20", rest[0].Message)
	})

	t.Run("DeleteMaxIDExactAndIdempotent", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(10, model.LevelInfo, "d")
		all := h.get(model.Query{})
		cut := all[4].ID
		require.NoError(t, h.b.DeleteLogs(h.ctx, model.DeleteQuery{MaxID: cut}))
		left := h.get(model.Query{})
		require.Len(t, left, 5)
		for _, e := range left {
			assert.Greater(t, e.ID, cut)
		}
		require.NoError(t, h.b.DeleteLogs(h.ctx, model.DeleteQuery{MaxID: cut}))
		assert.Equal(t, ids(left), ids(h.get(model.Query{})))
	})

	t.Run("IDsNotReusedAfterDeleteAll", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(3, model.LevelInfo, "r")
		before := h.get(model.Query{})
		require.NoError(t, h.b.DeleteLogs(h.ctx, model.DeleteQuery{}))
		assert.Empty(t, h.get(model.Query{}))
		h.write(1, model.LevelInfo, "r")
		after := h.get(model.Query{})
		require.Len(t, after, 1)
		assert.Greater(t, after[0].ID, before[2].ID)
	})

	t.Run("IDsSurviveReopen", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(2, model.LevelInfo, "p")
		before := h.get(model.Query{})
		require.NoError(t, h.b.Close())

		b2 := f(t, h.clock.Now)
		t.Cleanup(func() { _ = b2.Close() })
		require.NoError(t, b2.Configure(h.ctx, model.StoreOptions{LogFileDir: h.dir}))
		b2.Write(model.LevelInfo, "after", "")
		evs, err := b2.GetLogs(h.ctx, model.Query{})
		require.NoError(t, err)
		require.Len(t, evs, 3)
		assert.Greater(t, evs[2].ID, before[1].ID)
	})

	t.Run("DeleteByTimeRange", func(t *testing.T) {
		h := setup(t, f, nil)
		for i := 0; i < 5; i++ {
			h.b.Write(model.LevelInfo, fmt.Sprint(i), "")
			h.clock.Advance(1000)
		}
		require.NoError(t, h.b.DeleteLogs(h.ctx, model.DeleteQuery{Start: baseMs + 1000, End: baseMs + 3000}))
		left := h.get(model.Query{})
		require.Len(t, left, 2)
		assert.Equal(t, "0", left[0].Message)
		assert.Equal(t, "4", left[1].Message)
	})

	t.Run("DeleteCombinesBounds", func(t *testing.T) {
		h := setup(t, f, nil)
		for i := 0; i < 4; i++ {
			h.b.Write(model.LevelInfo, fmt.Sprint(i), "")
			h.clock.Advance(1000)
		}
		all := h.get(model.Query{})
		require.NoError(t, h.b.DeleteLogs(h.ctx, model.DeleteQuery{Start: baseMs + 1000, MaxID: all[2].ID}))
		left := h.get(model.Query{})
		assert.Equal(t, []uint64{all[0].ID, all[3].ID}, ids(left))
	})

	t.Run("LevelFilter", func(t *testing.T) {
		h := setup(t, f, nil)
		for _, l := range []model.Level{model.LevelTrace, model.LevelDebug, model.LevelInfo, model.LevelWarning, model.LevelError} {
			h.b.Write(l, l.String(), "")
		}
		assert.Len(t, h.get(model.Query{Level: model.LevelWarning}), 2)
		exact := h.get(model.Query{Level: model.LevelDebug, ExplicitLevel: true})
		require.Len(t, exact, 1)
		assert.Equal(t, model.LevelDebug, exact[0].Level)
	})

	t.Run("TagFilterAndDefaultTag", func(t *testing.T) {
		h := setup(t, f, nil)
		h.b.Write(model.LevelInfo, "a", "A")
		h.b.Write(model.LevelInfo, "b", "B")
		h.b.Write(model.LevelInfo, "untagged", "")
		h.b.Write(model.LevelInfo, "main", model.DefaultTag)

		onlyA := h.get(model.Query{Tags: []string{"A"}})
		require.Len(t, onlyA, 1)
		assert.Equal(t, "A", onlyA[0].Tag)

		withDefault := h.get(model.Query{Tags: []string{model.DefaultTag}})
		require.Len(t, withDefault, 2)
		assert.Equal(t, "untagged", withDefault[0].Message)

		assert.Len(t, h.get(model.Query{Tags: []string{"A", "B"}}), 2)
	})

	t.Run("CustomDefaultTag", func(t *testing.T) {
		h := setup(t, f, func(o *model.StoreOptions) { o.DefaultTag = "app" })
		h.b.Write(model.LevelInfo, "untagged", "")
		assert.Len(t, h.get(model.Query{Tags: []string{"app"}}), 1)
		assert.Empty(t, h.get(model.Query{Tags: []string{model.DefaultTag}}))
	})

	t.Run("TimeRangeAndAfterID", func(t *testing.T) {
		h := setup(t, f, nil)
		for i := 0; i < 5; i++ {
			h.b.Write(model.LevelInfo, fmt.Sprint(i), "")
			h.clock.Advance(10)
		}
		r := h.get(model.Query{Start: baseMs + 10, End: baseMs + 30})
		assert.Len(t, r, 3)
		r = h.get(model.Query{Start: baseMs + 10, End: baseMs + 30, Order: model.OrderDesc})
		require.Len(t, r, 3)
		assert.Equal(t, "3", r[0].Message)

		all := h.get(model.Query{})
		after := h.get(model.Query{AfterID: all[2].ID})
		assert.Equal(t, ids(all[3:]), ids(after))
	})

	t.Run("CELFilter", func(t *testing.T) {
		h := setup(t, f, nil)
		h.b.Write(model.LevelInfo, "disk full", "io")
		h.b.Write(model.LevelInfo, "ok", "io")
		evs := h.get(model.Query{Filter: `message.contains("disk") && tag == "io"`})
		require.Len(t, evs, 1)
		assert.Equal(t, "disk full", evs[0].Message)

		_, err := h.b.GetLogs(h.ctx, model.Query{Filter: "level +"})
		assert.ErrorIs(t, err, model.ErrInvalidFilter)
	})

	t.Run("ValidationBeforeStorage", func(t *testing.T) {
		h := setup(t, f, nil)
		_, err := h.b.GetLogs(h.ctx, model.Query{Start: 10, End: 5})
		assert.ErrorIs(t, err, model.ErrInvalidRange)
		_, err = h.b.GetLogs(h.ctx, model.Query{Limit: -1})
		assert.ErrorIs(t, err, model.ErrInvalidLimit)
		_, err = h.b.GetLogs(h.ctx, model.Query{Order: "sideways"})
		assert.ErrorIs(t, err, model.ErrInvalidOrder)
		assert.ErrorIs(t, h.b.DeleteLogs(h.ctx, model.DeleteQuery{Start: 10, End: 5}), model.ErrInvalidRange)
	})

	t.Run("RetentionAtConfigure", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(3, model.LevelInfo, "old")
		h.clock.Advance(10_000)
		h.write(2, model.LevelInfo, "new")
		require.Len(t, h.get(model.Query{}), 5)

		h.clock.Advance(2_000)
		// maxAge 5s: only the "new" batch is younger than the cutoff
		require.NoError(t, h.b.Configure(h.ctx, model.StoreOptions{LogFileDir: h.dir, MaxAge: 5}))
		left := h.get(model.Query{})
		require.Len(t, left, 2)
		assert.Equal(t, "new-0", left[0].Message)
	})

	t.Run("CompressionIsTransparent", func(t *testing.T) {
		h := setup(t, f, func(o *model.StoreOptions) { o.UseCompression = true })
		msg := fmt.Sprintf("%0512d", 7)
		h.b.Write(model.LevelInfo, msg, "")
		h.b.Write(model.LevelInfo, "short", "")
		evs := h.get(model.Query{})
		require.Len(t, evs, 2)
		assert.Equal(t, msg, evs[0].Message)
		assert.Equal(t, "short", evs[1].Message)
	})

	t.Run("CleanUpKeepsContent", func(t *testing.T) {
		h := setup(t, f, nil)
		msg := fmt.Sprintf("%0512d", 9)
		h.b.Write(model.LevelInfo, msg, "c")
		before := h.get(model.Query{})
		require.NoError(t, h.b.CleanUp(h.ctx, model.CleanUpOptions{Compress: true, Vacuum: true}))
		assert.Equal(t, before, h.get(model.Query{}))
	})

	t.Run("DBFilePathUnderDir", func(t *testing.T) {
		h := setup(t, f, func(o *model.StoreOptions) { o.LogFileName = "custom" })
		p, err := h.b.DBFilePath(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(h.dir, "custom"), p)
	})

	t.Run("ReconfigureToNewLocation", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(2, model.LevelInfo, "one")
		other := t.TempDir()
		require.NoError(t, h.b.Configure(h.ctx, model.StoreOptions{LogFileDir: other}))
		assert.Empty(t, h.get(model.Query{}))
		p, err := h.b.DBFilePath(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, other, filepath.Dir(p))
	})

	t.Run("ConcurrentWritersGetUniqueIDs", func(t *testing.T) {
		h := setup(t, f, nil)
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				h.write(50, model.LevelInfo, fmt.Sprintf("g%d", g))
			}(g)
		}
		wg.Wait()
		evs := h.get(model.Query{})
		require.Len(t, evs, 400)
		seen := make(map[uint64]bool, len(evs))
		for i, e := range evs {
			assert.False(t, seen[e.ID])
			seen[e.ID] = true
			if i > 0 {
				assert.Greater(t, e.ID, evs[i-1].ID)
			}
		}
	})

	t.Run("CleanUpRacingDeleteKeepsDeleted", func(t *testing.T) {
		h := setup(t, f, nil)
		msg := strings.Repeat("compressible ", 40)
		for i := 0; i < 2000; i++ {
			h.b.Write(model.LevelInfo, msg, "")
		}
		evs := h.get(model.Query{})
		require.Len(t, evs, 2000)
		last := evs[len(evs)-1].ID

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = h.b.CleanUp(h.ctx, model.CleanUpOptions{Compress: true})
		}()
		go func() {
			defer wg.Done()
			errs[1] = h.b.DeleteLogs(h.ctx, model.DeleteQuery{MaxID: last})
		}()
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.Empty(t, h.get(model.Query{}))
	})

	t.Run("CleanUpRacingRetentionKeepsSwept", func(t *testing.T) {
		h := setup(t, f, nil)
		msg := strings.Repeat("aged ", 80)
		for i := 0; i < 2000; i++ {
			h.b.Write(model.LevelInfo, msg, "old")
		}
		require.Len(t, h.get(model.Query{}), 2000)
		h.clock.Advance(60_000)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = h.b.CleanUp(h.ctx, model.CleanUpOptions{Compress: true})
		}()
		go func() {
			defer wg.Done()
			// reconfiguring with maxAge sweeps synchronously
			errs[1] = h.b.Configure(h.ctx, model.StoreOptions{LogFileDir: h.dir, MaxAge: 5})
		}()
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.Empty(t, h.get(model.Query{Tags: []string{"old"}}))

		h.b.Write(model.LevelInfo, "fresh", "")
		evs := h.get(model.Query{})
		require.Len(t, evs, 1)
		assert.Equal(t, "fresh", evs[0].Message)
	})

	t.Run("CloseWithFullBuffer", func(t *testing.T) {
		h := setup(t, f, nil)
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.write(5000, model.LevelInfo, "burst")
			}()
		}
		err := h.b.Close()
		wg.Wait()
		if err != nil {
			require.ErrorIs(t, err, writer.ErrDrainTimeout)
		}
		_, err = h.b.GetLogs(h.ctx, model.Query{})
		assert.ErrorIs(t, err, model.ErrClosed)
	})

	t.Run("ReconfigureWithFullBuffer", func(t *testing.T) {
		h := setup(t, f, nil)
		h.write(20000, model.LevelInfo, "moved")
		other := t.TempDir()
		require.NoError(t, h.b.Configure(h.ctx, model.StoreOptions{LogFileDir: other}))
		h.b.Write(model.LevelInfo, "new home", "")
		evs := h.get(model.Query{})
		require.Len(t, evs, 1)
		assert.Equal(t, "new home", evs[0].Message)

		require.NoError(t, h.b.Configure(h.ctx, model.StoreOptions{LogFileDir: h.dir}))
		assert.Len(t, h.get(model.Query{Tags: []string{"moved"}}), 20000)
	})
}
