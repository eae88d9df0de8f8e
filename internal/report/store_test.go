package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/database"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default().Database
	cfg.Driver = database.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(ctx, db)
	require.NoError(t, err)
	return store
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Mode:       "concurrent",
		Root:       "input/",
		Workers:    5,
		Files:      28,
		Words:      1200,
		Locations:  28,
		Queries:    12,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
}

func TestRecordAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, sampleRun("run-1", started)))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "concurrent", got.Mode)
	assert.Equal(t, 28, got.Files)
	assert.Equal(t, 1200, got.Words)
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, started.Add(2*time.Second).Equal(got.FinishedAt))

	missing, err := store.Get(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordRejectsDuplicatesAndEmptyIDs(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	run := sampleRun("run-1", time.Now())

	require.NoError(t, store.Record(ctx, run))
	assert.Error(t, store.Record(ctx, run))
	assert.Error(t, store.Record(ctx, Run{}))
}

func TestRecent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestSnapshots(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, store.SaveSnapshot(ctx, "run-1", analytics.AggregatedStats{TotalSearches: 3}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.SaveSnapshot(ctx, "run-1", analytics.AggregatedStats{
		TotalSearches: 7,
		TopQueries:    []analytics.QueryCount{{Query: "fox", Count: 4}},
	}))

	latest, err = store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(7), latest.TotalSearches)
	assert.Equal(t, []analytics.QueryCount{{Query: "fox", Count: 4}}, latest.TopQueries)
	assert.NoError(t, store.Ping(ctx))
}
