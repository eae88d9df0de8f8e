// Package handler serves ranked searches over the built index.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/middleware"
)

// Index is what the handler needs from the index: searches plus sizes.
// It must be safe for concurrent use.
type Index interface {
	index.Searcher
	NumWords() int
	NumLocations() int
}

// SearchResponse is the body of a search.
type SearchResponse struct {
	Query     string         `json:"query"`
	RawQuery  string         `json:"raw_query"`
	Mode      string         `json:"mode"`
	TotalHits int            `json:"total_hits"`
	Results   []index.Result `json:"results"`
	CacheHit  bool           `json:"cache_hit"`
	TookMs    int64          `json:"took_ms"`
}

type Handler struct {
	index        Index
	cache        *cache.QueryCache
	collector    *analytics.Collector
	exact        bool
	defaultLimit int
	maxResults   int
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New creates a Handler. queryCache and collector may be nil.
func New(idx Index, queryCache *cache.QueryCache, collector *analytics.Collector, cfg config.SearchConfig, m *metrics.Metrics) *Handler {
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}
	return &Handler{
		index:        idx,
		cache:        queryCache,
		collector:    collector,
		exact:        cfg.Exact,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		metrics:      m,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=&exact=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.ForRun(ctx, h.logger)

	raw := r.URL.Query().Get("q")
	if raw == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}

	exact := h.exact
	if v := r.URL.Query().Get("exact"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "exact must be true or false"))
			return
		}
		exact = parsed
	}

	limit := h.defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, h.maxResults)
	}

	q := parser.Parse(raw)
	resp := SearchResponse{
		Query:    q.Key(),
		RawQuery: raw,
		Mode:     query.Mode(exact),
		Results:  []index.Result{},
	}
	if q.Empty() {
		h.metrics.QueryHandled(query.OutcomeEmpty)
		resp.TookMs = time.Since(start).Milliseconds()
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	compute := func() (*cache.Entry, error) {
		searchStart := time.Now()
		results := h.index.Search(q.Terms, exact)
		h.metrics.SearchObserved(resp.Mode, time.Since(searchStart).Seconds(), len(results))
		return &cache.Entry{Query: q.Key(), Exact: exact, Results: results}, nil
	}

	var entry *cache.Entry
	var err error
	if h.cache != nil {
		entry, resp.CacheHit, err = h.cache.GetOrCompute(ctx, q.Key(), exact, compute)
	} else {
		entry, err = compute()
	}
	if err != nil {
		log.Error("search failed", "query", q.Key(), "error", err)
		h.writeError(w, fmt.Errorf("%w: search failed", apperrors.ErrInternal))
		return
	}
	h.metrics.QueryHandled(query.OutcomeEvaluated)

	resp.TotalHits = len(entry.Results)
	if len(entry.Results) > limit {
		resp.Results = entry.Results[:limit]
	} else if len(entry.Results) > 0 {
		resp.Results = entry.Results
	}
	resp.TookMs = time.Since(start).Milliseconds()

	log.Info("search completed",
		"query", resp.Query,
		"mode", resp.Mode,
		"total_hits", resp.TotalHits,
		"returned", len(resp.Results),
		"cache_hit", resp.CacheHit,
		"latency_ms", resp.TookMs,
	)
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:      analytics.EventSearch,
			Query:     resp.Query,
			Exact:     exact,
			TotalHits: resp.TotalHits,
			Returned:  len(resp.Results),
			LatencyMs: resp.TookMs,
			CacheHit:  resp.CacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// IndexStats handles GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]int{
		"words":     h.index.NumWords(),
		"locations": h.index.NumLocations(),
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.Message(err)})
}
