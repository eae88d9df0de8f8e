// Package router wires the search API routes and applies the middleware
// chain.
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/middleware"
)

// Options carries the optional pieces of the chain. Zero values disable
// the corresponding middleware.
type Options struct {
	CORSOrigins []string
	Limiter     *middleware.Limiter
	Metrics     *metrics.Metrics
	Timeout     time.Duration
}

// New builds the HTTP handler for the search API.
//
// Route table:
//
//	GET  /api/v1/search            ranked search (?q=&exact=&limit=)
//	GET  /api/v1/index/stats       word and location counts
//	GET  /api/v1/cache/stats       cache hits, misses and breaker state
//	POST /api/v1/cache/invalidate  drop every cached search
//	GET  /api/v1/analytics         aggregated search and run statistics
//	GET  /api/v1/analytics/runs    run events of this process
//	GET  /health/live              liveness
//	GET  /health/ready             readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → RateLimit → Metrics → Timeout → handler
func New(h *handler.Handler, stats *analytics.Handler, checker *health.Checker, opts Options) http.Handler {
	routes := []route{
		{http.MethodGet, "/health/live", checker.LiveHandler()},
		{http.MethodGet, "/health/ready", checker.ReadyHandler()},
		{http.MethodGet, "/api/v1/search", h.Search},
		{http.MethodGet, "/api/v1/index/stats", h.IndexStats},
		{http.MethodGet, "/api/v1/cache/stats", h.CacheStats},
		{http.MethodPost, "/api/v1/cache/invalidate", h.CacheInvalidate},
	}
	if stats != nil {
		routes = append(routes,
			route{http.MethodGet, "/api/v1/analytics", stats.Stats},
			route{http.MethodGet, "/api/v1/analytics/runs", stats.Runs},
		)
	}

	mux := http.NewServeMux()
	paths := make([]string, 0, len(routes))
	for _, rt := range routes {
		mux.HandleFunc(rt.method+" "+rt.path, rt.handler)
		paths = append(paths, rt.path)
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins)),
		middleware.RateLimit(opts.Limiter),
		middleware.Metrics(opts.Metrics, paths...),
	}
	if opts.Timeout > 0 {
		chain = append(chain, middleware.Timeout(opts.Timeout))
	}
	return middleware.Chain(mux, chain...)
}

type route struct {
	method  string
	path    string
	handler http.HandlerFunc
}
