// Package query evaluates query files against an index and keeps the ranked
// results keyed by canonical query. Engine works on the calling goroutine;
// ConcurrentEngine evaluates each line as a work queue task.
package query

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/tracing"
)

// Outcomes recorded per query line.
const (
	OutcomeEvaluated = "evaluated"
	OutcomeDuplicate = "duplicate"
	OutcomeEmpty     = "empty"
)

// Stats summarizes one query file.
type Stats struct {
	Lines      int           `json:"lines"`
	Evaluated  int           `json:"evaluated"`
	Duplicates int           `json:"duplicates"`
	Empty      int           `json:"empty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// QueryEngine is the operation set shared by Engine and ConcurrentEngine.
type QueryEngine interface {
	ParseFile(ctx context.Context, path string, exact bool) (Stats, error)
	ParseLine(line string, exact bool) bool
	Queries() []string
	Results(key string) []index.Result
	Snapshot() map[string][]index.Result
	Len() int
}

var (
	_ QueryEngine = (*Engine)(nil)
	_ QueryEngine = (*ConcurrentEngine)(nil)
)

// Mode names the search mode for logs and metrics.
func Mode(exact bool) string {
	if exact {
		return "exact"
	}
	return "partial"
}

// Engine evaluates queries serially. It is not safe for concurrent use.
type Engine struct {
	index   index.Searcher
	open    opener
	results map[string][]index.Result
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine creates a serial engine over idx.
func NewEngine(idx index.Searcher, m *metrics.Metrics) *Engine {
	return &Engine{
		index:   idx,
		open:    openFile,
		results: make(map[string][]index.Result),
		metrics: m,
		logger:  slog.Default().With("component", "query-engine"),
	}
}

// ParseFile evaluates every line of the file at path. A path that cannot be
// opened is reported as ErrInvalidPath; a read failure part way through is
// logged and ends the file.
func (e *Engine) ParseFile(ctx context.Context, path string, exact bool) (Stats, error) {
	ctx, span := tracing.StartChildSpan(ctx, "query.evaluate")
	defer span.End()
	log := logger.ForRun(ctx, e.logger)
	start := time.Now()

	var stats Stats
	err := readLines(e.open, path, log, func(line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Lines++
		switch e.evaluate(line, exact) {
		case OutcomeEvaluated:
			stats.Evaluated++
		case OutcomeDuplicate:
			stats.Duplicates++
		case OutcomeEmpty:
			stats.Empty++
		}
		return nil
	})
	stats.Elapsed = time.Since(start)
	span.SetAttr("queries", stats.Evaluated)
	if err != nil {
		return stats, err
	}
	logSummary(log, path, exact, stats)
	return stats, nil
}

// ParseLine evaluates one query line and reports whether a new canonical
// query was stored.
func (e *Engine) ParseLine(line string, exact bool) bool {
	return e.evaluate(line, exact) == OutcomeEvaluated
}

func (e *Engine) evaluate(line string, exact bool) string {
	q := parser.Parse(line)
	outcome := OutcomeEmpty
	if !q.Empty() {
		outcome = OutcomeDuplicate
		if _, ok := e.results[q.Key()]; !ok {
			e.results[q.Key()] = search(e.index, q, exact, e.metrics)
			outcome = OutcomeEvaluated
		}
	}
	e.metrics.QueryHandled(outcome)
	return outcome
}

// Queries returns the stored canonical queries in ascending order.
func (e *Engine) Queries() []string {
	return slices.Sorted(maps.Keys(e.results))
}

// Results returns a copy of the ranked results stored for key, or nil.
func (e *Engine) Results(key string) []index.Result {
	return slices.Clone(e.results[key])
}

// Snapshot returns a copy of every stored query and its results.
func (e *Engine) Snapshot() map[string][]index.Result {
	out := make(map[string][]index.Result, len(e.results))
	for key, results := range e.results {
		out[key] = slices.Clone(results)
	}
	return out
}

func (e *Engine) Len() int {
	return len(e.results)
}

func search(idx index.Searcher, q parser.Query, exact bool, m *metrics.Metrics) []index.Result {
	start := time.Now()
	results := idx.Search(q.Terms, exact)
	m.SearchObserved(Mode(exact), time.Since(start).Seconds(), len(results))
	return results
}

// opener opens a query file.
type opener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// readLines calls fn with every line of the file at path, without the line
// terminator. It stops early when fn returns an error and returns it.
func readLines(open opener, path string, log *slog.Logger, fn func(line string) error) error {
	f, err := open(path)
	if err != nil {
		return fmt.Errorf("%w: opening query file %s: %v", apperrors.ErrInvalidPath, path, err)
	}
	defer f.Close()
	return scanLines(f, path, log, fn)
}

// scanLines is readLines over an open reader. A read error is logged with
// its line number and ends the input; the lines before it are kept.
func scanLines(r io.Reader, path string, log *slog.Logger, fn func(line string) error) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if line != "" {
			if ferr := fn(trimEOL(line)); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Warn("failed to read query line", "path", path, "line", n, "error", err)
			return nil
		}
	}
}

func trimEOL(line string) string {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}
	return line
}

func logSummary(log *slog.Logger, path string, exact bool, stats Stats) {
	log.Info("queries evaluated",
		"path", path,
		"mode", Mode(exact),
		"lines", stats.Lines,
		"evaluated", stats.Evaluated,
		"duplicates", stats.Duplicates,
		"empty", stats.Empty,
		"elapsed", stats.Elapsed,
	)
}
