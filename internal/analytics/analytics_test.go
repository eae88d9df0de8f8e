package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    int
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail > 0 {
		p.fail--
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *recordingPublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []kafka.Event
	for _, b := range p.batches {
		all = append(all, b...)
	}
	return all
}

func search(query string, hits int, latency int64, cacheHit bool) SearchEvent {
	return SearchEvent{Type: EventSearch, Query: query, TotalHits: hits, LatencyMs: latency, CacheHit: cacheHit}
}

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	for i := range 10 {
		a.Record(search("fox", 2, int64(i+1), i%2 == 0))
	}
	a.Record(search("zebra", 0, 100, false))
	a.Record(search("zebra", 0, 100, false))
	a.Record(search("dog", 1, 5, false))
	a.Record(RunEvent{Type: EventBuildCompleted, RunID: "r1", Items: 28})

	stats := a.Stats()
	assert.Equal(t, int64(13), stats.TotalSearches)
	assert.Equal(t, int64(5), stats.CacheHits)
	assert.Equal(t, int64(8), stats.CacheMisses)
	assert.Equal(t, int64(2), stats.ZeroResultCount)
	assert.Equal(t, []QueryCount{{"fox", 10}, {"zebra", 2}, {"dog", 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{"zebra", 2}}, stats.ZeroResultQueries)
	assert.Equal(t, int64(100), stats.P99LatencyMs)
	require.Len(t, stats.Runs, 1)
	assert.Equal(t, 28, stats.Runs[0].Items)
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, int64(6), percentile(sorted, 50))
	assert.Equal(t, int64(10), percentile(sorted, 99))
	assert.Equal(t, int64(10), percentile(sorted, 100))
	assert.Equal(t, int64(0), percentile(nil, 50))
}

func TestTopNTiesByQuery(t *testing.T) {
	got := topN(map[string]int64{"b": 1, "a": 1, "c": 3}, 2)
	assert.Equal(t, []QueryCount{{"c", 3}, {"a", 1}}, got)
}

func TestCollectorPublishesBatches(t *testing.T) {
	pub := &recordingPublisher{}
	agg := NewAggregator()
	c := NewCollector(pub, agg, 100, 3, time.Hour)
	c.Start(context.Background())

	for range 7 {
		c.Track(search("fox", 1, 1, false))
	}
	c.Track(RunEvent{Type: EventQueriesEvaluated, RunID: "r1"})
	c.Close()

	events := pub.events()
	require.Len(t, events, 8)
	assert.Equal(t, "fox", events[0].Key)
	assert.Equal(t, "r1", events[7].Key)
	assert.Equal(t, int64(7), agg.Stats().TotalSearches)

	c.Track(search("late", 1, 1, false))
	c.Close()
	assert.Len(t, pub.events(), 8, "events after Close are not published")
}

func TestCollectorRetriesFailedBatch(t *testing.T) {
	pub := &recordingPublisher{fail: 1}
	c := NewCollector(pub, nil, 10, 1, time.Hour)
	c.Start(context.Background())
	c.Track(search("fox", 1, 1, false))
	c.Close()
	assert.Len(t, pub.events(), 1)
}

func TestCollectorWithoutPublisher(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(nil, agg, 0, 0, 0)
	c.Start(context.Background())
	c.Track(search("fox", 1, 1, true))
	c.Close()
	assert.Equal(t, int64(1), agg.Stats().CacheHits)
}

func TestHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(search("fox", 1, 3, false))
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, 3.0, stats.AvgLatencyMs)
}

func TestHandlerTopParam(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"fox", "dog", "cat"} {
		agg.Record(search(q, 1, 1, false))
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=2", nil))
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Len(t, stats.TopQueries, 2)

	for _, bad := range []string{"0", "101", "two"} {
		rec = httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestHandlerRuns(t *testing.T) {
	agg := NewAggregator()
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Runs(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/runs", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())

	agg.Record(RunEvent{Type: EventBuildCompleted, RunID: "r1", Items: 4})
	rec = httptest.NewRecorder()
	h.Runs(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/runs", nil))
	var runs []RunEvent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)
	assert.Equal(t, 4, runs[0].Items)
}
