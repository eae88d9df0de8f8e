package query

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/tracing"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/workqueue"
)

// ConcurrentEngine evaluates query lines on a work queue. Its methods are
// safe for concurrent use.
type ConcurrentEngine struct {
	index   index.Searcher
	open    opener
	queue   *workqueue.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	results map[string][]index.Result
	// inflight holds canonical queries claimed by a task whose search has
	// not finished yet.
	inflight map[string]struct{}
}

// NewConcurrentEngine creates an engine over idx, which must itself be safe
// for concurrent searches (for example *index.Concurrent).
func NewConcurrentEngine(idx index.Searcher, queue *workqueue.Queue, m *metrics.Metrics) *ConcurrentEngine {
	return &ConcurrentEngine{
		index:    idx,
		open:     openFile,
		queue:    queue,
		metrics:  m,
		logger:   slog.Default().With("component", "concurrent-query-engine"),
		results:  make(map[string][]index.Result),
		inflight: make(map[string]struct{}),
	}
}

// ParseFile submits every line of the file at path as a task and waits for
// all of them. Lines are read on the calling goroutine.
func (e *ConcurrentEngine) ParseFile(ctx context.Context, path string, exact bool) (Stats, error) {
	ctx, span := tracing.StartChildSpan(ctx, "query.evaluate")
	defer span.End()
	log := logger.ForRun(ctx, e.logger)
	start := time.Now()

	var lines, evaluated, duplicates, empty atomic.Int64
	err := readLines(e.open, path, log, func(line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.queue.Execute(func() error {
			switch e.evaluate(line, exact) {
			case OutcomeEvaluated:
				evaluated.Add(1)
			case OutcomeDuplicate:
				duplicates.Add(1)
			case OutcomeEmpty:
				empty.Add(1)
			}
			return nil
		}); err != nil {
			return err
		}
		lines.Add(1)
		return nil
	})
	if ferr := e.queue.Finish(); ferr != nil {
		log.Debug("query tasks finished with errors", "error", ferr)
	}

	stats := Stats{
		Lines:      int(lines.Load()),
		Evaluated:  int(evaluated.Load()),
		Duplicates: int(duplicates.Load()),
		Empty:      int(empty.Load()),
		Elapsed:    time.Since(start),
	}
	span.SetAttr("queries", stats.Evaluated)
	span.SetAttr("workers", e.queue.Workers())
	if err != nil {
		return stats, err
	}
	logSummary(log, path, exact, stats)
	return stats, nil
}

// ParseLine evaluates one query line on the calling goroutine and reports
// whether a new canonical query was stored.
func (e *ConcurrentEngine) ParseLine(line string, exact bool) bool {
	return e.evaluate(line, exact) == OutcomeEvaluated
}

// evaluate claims the canonical key under the lock, searches without it and
// then publishes the results. A second line with the same key observes the
// claim and is skipped.
func (e *ConcurrentEngine) evaluate(line string, exact bool) string {
	q := parser.Parse(line)
	if q.Empty() {
		e.metrics.QueryHandled(OutcomeEmpty)
		return OutcomeEmpty
	}
	key := q.Key()

	e.mu.Lock()
	_, done := e.results[key]
	_, running := e.inflight[key]
	if done || running {
		e.mu.Unlock()
		e.metrics.QueryHandled(OutcomeDuplicate)
		return OutcomeDuplicate
	}
	e.inflight[key] = struct{}{}
	e.mu.Unlock()

	results := search(e.index, q, exact, e.metrics)

	e.mu.Lock()
	delete(e.inflight, key)
	e.results[key] = results
	e.mu.Unlock()

	e.metrics.QueryHandled(OutcomeEvaluated)
	return OutcomeEvaluated
}

// Queries returns the canonical queries whose results are stored, in
// ascending order.
func (e *ConcurrentEngine) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.results))
}

func (e *ConcurrentEngine) Results(key string) []index.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.results[key])
}

func (e *ConcurrentEngine) Snapshot() map[string][]index.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string][]index.Result, len(e.results))
	for key, results := range e.results {
		out[key] = slices.Clone(results)
	}
	return out
}

func (e *ConcurrentEngine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.results)
}
