// Command textsearch builds an inverted index from text files or a web
// crawl, evaluates query files against it, writes JSON output and can serve
// ranked search over HTTP.
//
// Arguments are "-flag [value]" pairs:
//
//	-config <file>        YAML configuration
//	-path <dir|file>      index text files
//	-url <seed>           crawl and index web pages
//	-limit <n>            crawl at most n unique URLs (default 50)
//	-threads <n>          worker count for the concurrent components (default 5)
//	-index [file]         write the index (default index.json)
//	-counts [file]        write word counts (default counts.json)
//	-query <file>         evaluate one query per line
//	-exact                exact instead of partial search
//	-results [file]       write query results (default results.json)
//	-port [n]             serve search over HTTP (default 8080)
//
// -threads, -url and -port select the concurrent components.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/crawler"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/report"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/jsonout"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/tracing"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/workqueue"
)

const defaultWorkers = 5

func main() {
	start := time.Now()
	args := cli.Parse(os.Args[1:])

	cfg, err := config.Load(args.GetPath("-config", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, args, cfg, nil)
	if err != nil {
		slog.Error("run failed", "error", err)
	}
	code := apperrors.ExitCode(err)
	stop()

	elapsed := time.Since(start)
	slog.Info("elapsed", "seconds", fmt.Sprintf("%f", elapsed.Seconds()))
	os.Exit(code)
}

// driver carries the components of one run.
type driver struct {
	cfg        *config.Config
	args       *cli.Args
	concurrent bool
	workers    int
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	services   *services

	queue  *workqueue.Queue
	index  index.Index
	shared *index.Concurrent
	engine query.QueryEngine

	run    report.Run
	logger *slog.Logger
	// inputErr is the first bad path or seed seen by a step. The remaining
	// steps still run; run returns it at the end.
	inputErr error
}

// run executes one driver run. Metrics are registered on reg, or on the
// default registry when reg is nil. A bad -path, -query or -url does not
// stop the other steps but is returned once they are done.
func run(ctx context.Context, args *cli.Args, cfg *config.Config, reg *prometheus.Registry) error {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "run", runID)
	defer func() {
		span.End()
		if cfg.Tracing.Enabled {
			span.Log(slog.Default())
		}
	}()

	d := newDriver(ctx, args, cfg, runID, reg)
	defer func() {
		if d.queue != nil {
			d.queue.Shutdown()
		}
		if err := d.services.Close(); err != nil {
			d.logger.Warn("shutdown incomplete", "error", err)
		}
	}()
	span.SetAttr("mode", d.run.Mode)
	span.SetAttr("workers", d.workers)

	d.crawl(ctx)
	d.build(ctx)
	d.writeIndex()
	d.writeCounts()
	d.evaluate(ctx)
	d.writeResults()

	d.run.Words = d.index.NumWords()
	d.run.Locations = d.index.NumLocations()
	d.run.Queries = d.engine.Len()
	d.run.FinishedAt = time.Now()
	d.services.recordRun(ctx, d.run)

	if args.HasFlag("-port") {
		return errors.Join(d.inputErr, d.serve(ctx, args.GetInt("-port", cfg.Server.Port)))
	}
	return d.inputErr
}

func newDriver(ctx context.Context, args *cli.Args, cfg *config.Config, runID string, reg *prometheus.Registry) *driver {
	if args.HasFlag("-exact") {
		cfg.Search.Exact = true
	}
	d := &driver{
		cfg:        cfg,
		args:       args,
		concurrent: args.HasFlag("-threads") || args.HasFlag("-url") || args.HasFlag("-port"),
		metrics:    newMetrics(reg),
		registry:   reg,
		logger:     logger.ForRun(ctx, logger.WithComponent("driver")),
	}
	d.services = openServices(ctx, cfg, d.metrics)

	mode := "serial"
	if d.concurrent {
		mode = "concurrent"
		d.workers = args.GetInt("-threads", cfg.Indexer.Workers)
		if d.workers <= 0 {
			d.workers = defaultWorkers
		}
		d.queue = workqueue.New(d.workers, d.metrics)
		d.shared = index.NewConcurrent()
		d.index = d.shared
		d.engine = query.NewConcurrentEngine(d.shared, d.queue, d.metrics)
	} else {
		idx := index.New()
		d.index = idx
		d.engine = query.NewEngine(idx, d.metrics)
	}
	d.run = report.Run{
		ID:        runID,
		Mode:      mode,
		Workers:   d.workers,
		StartedAt: time.Now(),
	}
	d.logger.Info("run started", "mode", mode, "workers", d.workers)
	return d
}

func (d *driver) crawl(ctx context.Context) {
	if !d.concurrent || !d.args.HasValue("-url") {
		return
	}
	seed := d.args.GetString("-url", "")
	c := crawler.New(d.shared, d.queue, nil, crawler.Config{
		Limit:        d.args.GetInt("-limit", d.cfg.Indexer.CrawlLimit),
		Timeout:      d.cfg.Indexer.CrawlTimeout,
		MaxPageBytes: d.cfg.Indexer.MaxPageBytes,
		UserAgent:    d.cfg.Indexer.UserAgent,
	}, d.metrics)

	stats, err := c.Crawl(ctx, seed)
	d.run.Seed = seed
	d.run.Pages = stats.Pages
	d.run.Failures += stats.Failed
	if err != nil {
		d.logger.Error("crawl failed", "seed", seed, "error", err)
		d.noteInputErr(err)
		return
	}
	d.track(analytics.EventCrawlCompleted, seed, stats.Pages, stats.Failed, stats.Words, stats.Elapsed)
}

func (d *driver) build(ctx context.Context) {
	if !d.args.HasValue("-path") {
		return
	}
	root := d.args.GetPath("-path", "")
	var builder indexer.IndexBuilder
	if d.concurrent {
		builder = indexer.NewConcurrentBuilder(d.shared, d.queue, d.cfg.Indexer.Extensions, d.metrics)
	} else {
		builder = indexer.NewBuilder(d.index, d.cfg.Indexer.Extensions, d.metrics)
	}

	stats, err := builder.Build(ctx, root)
	d.run.Root = root
	d.run.Files = stats.Files
	d.run.Failures += stats.Failed
	if err != nil {
		d.logger.Error("path could not be traversed", "path", root, "error", err)
		d.noteInputErr(err)
		return
	}
	d.track(analytics.EventBuildCompleted, root, stats.Files, stats.Failed, stats.Words, stats.Elapsed)
}

func (d *driver) writeIndex() {
	if !d.args.HasFlag("-index") {
		return
	}
	path := d.args.GetPath("-index", "index.json")
	if err := jsonout.WriteIndex(path, d.index); err != nil {
		d.logger.Error("failed to write index", "path", path, "error", err)
		return
	}
	d.logger.Info("index written", "path", path)
}

func (d *driver) writeCounts() {
	if !d.args.HasFlag("-counts") {
		return
	}
	path := d.args.GetPath("-counts", "counts.json")
	if err := jsonout.WriteCounts(path, d.index.Counts()); err != nil {
		d.logger.Error("failed to write counts", "path", path, "error", err)
		return
	}
	d.logger.Info("counts written", "path", path)
}

func (d *driver) evaluate(ctx context.Context) {
	if !d.args.HasValue("-query") {
		return
	}
	path := d.args.GetPath("-query", "")
	stats, err := d.engine.ParseFile(ctx, path, d.cfg.Search.Exact)
	if err != nil {
		d.logger.Error("failed to evaluate queries", "path", path, "error", err)
		d.noteInputErr(err)
		return
	}
	d.track(analytics.EventQueriesEvaluated, path, stats.Evaluated, 0, 0, stats.Elapsed)
}

func (d *driver) writeResults() {
	if !d.args.HasFlag("-results") {
		return
	}
	path := d.args.GetPath("-results", "results.json")
	if err := jsonout.WriteResults(path, d.engine.Snapshot()); err != nil {
		d.logger.Error("failed to write results", "path", path, "error", err)
		return
	}
	d.logger.Info("results written", "path", path)
}

// noteInputErr keeps the first error caused by a bad argument value.
func (d *driver) noteInputErr(err error) {
	if d.inputErr == nil && apperrors.ExitCode(err) == 2 {
		d.inputErr = err
	}
}

func newMetrics(reg *prometheus.Registry) *metrics.Metrics {
	if reg == nil {
		return metrics.New(nil)
	}
	return metrics.New(reg)
}

func (d *driver) track(typ analytics.EventType, source string, items, failed, words int, elapsed time.Duration) {
	d.services.collector.Track(analytics.RunEvent{
		Type:      typ,
		RunID:     d.run.ID,
		Mode:      d.run.Mode,
		Source:    source,
		Items:     items,
		Failed:    failed,
		Words:     words,
		Locations: d.index.NumLocations(),
		Workers:   d.workers,
		ElapsedMs: elapsed.Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
}

// serve answers searches until ctx is cancelled.
func (d *driver) serve(ctx context.Context, port int) error {
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d words in %d locations", d.shared.NumWords(), d.shared.NumLocations()),
		}
	})
	d.services.register(checker)

	var limiter *middleware.Limiter
	if d.cfg.Server.RateLimit > 0 {
		limiter = middleware.NewLimiter(d.cfg.Server.RateLimit, time.Minute)
	}
	h := handler.New(d.shared, d.services.cache, d.services.collector, d.cfg.Search, d.metrics)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", port),
		Handler: router.New(h, analytics.NewHandler(d.services.aggregator), checker, router.Options{
			CORSOrigins: d.cfg.Server.CORSOrigins,
			Limiter:     limiter,
			Metrics:     d.metrics,
			Timeout:     d.cfg.Search.Timeout,
		}),
		ReadTimeout:  d.cfg.Server.ReadTimeout,
		WriteTimeout: d.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if limiter != nil {
		g.Go(func() error {
			limiter.Cleanup(gctx, time.Minute)
			return nil
		})
	}
	if d.cfg.Metrics.Enabled {
		g.Go(func() error {
			addr := fmt.Sprintf(":%d", d.cfg.Metrics.Port)
			var g prometheus.Gatherer
			if d.registry != nil {
				g = d.registry
			}
			return metrics.Serve(gctx, addr, g, d.cfg.Server.ShutdownTimeout, d.logger)
		})
	}
	g.Go(func() error {
		d.logger.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		d.logger.Info("shutdown signal received")
		checker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	checker.SetReady(true)

	err := g.Wait()
	snapshotCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.services.saveSnapshot(snapshotCtx, d.run.ID)
	d.logger.Info("search service stopped")
	return err
}
