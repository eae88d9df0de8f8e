package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/redis"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return nil, pkgredis.ErrNotFound
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) FlushByPattern(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string][]byte)
	return n, nil
}

func testIndex() *index.Concurrent {
	idx := index.NewConcurrent()
	idx.Add("fox", "a.txt", 1)
	idx.Add("fox", "a.txt", 2)
	idx.Add("fox", "b.txt", 1)
	idx.Add("dog", "b.txt", 2)
	idx.Add("cat", "c.txt", 1)
	return idx
}

func newTestHandler(qc *cache.QueryCache, collector *analytics.Collector) *Handler {
	return New(testIndex(), qc, collector, config.SearchConfig{DefaultLimit: 10, MaxResults: 2}, nil)
}

func doSearch(t *testing.T, h *Handler, rawQuery string) (*httptest.ResponseRecorder, SearchResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?"+rawQuery, nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	var resp SearchResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	}
	return rec, resp
}

func TestSearchExact(t *testing.T) {
	h := newTestHandler(nil, nil)
	rec, resp := doSearch(t, h, "q=Fox&exact=true")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "fox", resp.Query)
	assert.Equal(t, "Fox", resp.RawQuery)
	assert.Equal(t, "exact", resp.Mode)
	assert.Equal(t, 2, resp.TotalHits)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, index.Result{Location: "a.txt", Count: 2, Score: 1}, resp.Results[0])
	assert.Equal(t, index.Result{Location: "b.txt", Count: 1, Score: 0.5}, resp.Results[1])
	assert.False(t, resp.CacheHit)
}

func TestSearchPartialDefault(t *testing.T) {
	h := newTestHandler(nil, nil)
	_, resp := doSearch(t, h, "q=fo")
	assert.Equal(t, "partial", resp.Mode)
	assert.Equal(t, 2, resp.TotalHits)

	_, resp = doSearch(t, h, "q=fo&exact=true")
	assert.Equal(t, 0, resp.TotalHits)
	assert.NotNil(t, resp.Results)
}

func TestSearchLimit(t *testing.T) {
	h := newTestHandler(nil, nil)

	_, resp := doSearch(t, h, "q=fox+dog+cat&limit=1")
	assert.Equal(t, 3, resp.TotalHits)
	assert.Len(t, resp.Results, 1)

	_, resp = doSearch(t, h, "q=fox+dog+cat&limit=50")
	assert.Equal(t, 3, resp.TotalHits)
	assert.Len(t, resp.Results, 2, "limit is clamped to the configured maximum")
}

func TestSearchBadRequests(t *testing.T) {
	h := newTestHandler(nil, nil)
	for _, q := range []string{"", "q=fox&exact=maybe", "q=fox&limit=0", "q=fox&limit=-3", "q=fox&limit=ten"} {
		rec, _ := doSearch(t, h, q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.NotEmpty(t, body["error"], q)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	h := newTestHandler(nil, nil)
	rec, resp := doSearch(t, h, "q=%21%21%21")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", resp.Query)
	assert.Equal(t, 0, resp.TotalHits)
	assert.Empty(t, resp.Results)
}

func TestSearchUsesCache(t *testing.T) {
	qc := cache.New(&mapStore{data: make(map[string][]byte)}, time.Minute, nil)
	h := newTestHandler(qc, nil)

	_, first := doSearch(t, h, "q=fox")
	_, second := doSearch(t, h, "q=FOX!")
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results, second.Results)

	_, exact := doSearch(t, h, "q=fox&exact=true")
	assert.False(t, exact.CacheHit, "modes are cached separately")

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	var stats map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1.0, stats["hits"])
	assert.Equal(t, 2.0, stats["misses"])
	assert.Equal(t, "closed", stats["breaker"])

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, after := doSearch(t, h, "q=fox")
	assert.False(t, after.CacheHit)
}

func TestCacheDisabled(t *testing.T) {
	h := newTestHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"caching is disabled"}`, rec.Body.String())
}

func TestIndexStats(t *testing.T) {
	h := newTestHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.IndexStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/index/stats", nil))
	assert.JSONEq(t, `{"words":3,"locations":3}`, rec.Body.String())
}

func TestSearchTracksEvents(t *testing.T) {
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(nil, agg, 0, 0, 0)
	h := newTestHandler(nil, collector)

	doSearch(t, h, "q=fox")
	doSearch(t, h, "q=fox")
	doSearch(t, h, "q=zebra")

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	require.NotEmpty(t, stats.TopQueries)
	assert.Equal(t, analytics.QueryCount{Query: "fox", Count: 2}, stats.TopQueries[0])
}
