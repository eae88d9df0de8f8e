// Package crawler indexes web pages reachable from a seed URL. Every page is
// fetched on a work queue worker; links found on a page are submitted as new
// tasks until the crawl limit of unique URLs is reached.
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/tracing"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/workqueue"
)

// DefaultLimit is the number of unique URLs crawled when no limit is set.
const DefaultLimit = 50

// Config controls crawl limits.
type Config struct {
	Limit        int
	Timeout      time.Duration
	MaxPageBytes int64
	UserAgent    string
}

// Stats summarizes one crawl.
type Stats struct {
	Pages   int           `json:"pages"`
	Failed  int           `json:"failed"`
	Words   int           `json:"words"`
	Elapsed time.Duration `json:"elapsed"`
}

// Crawler fetches pages into a shared index. A Crawler runs one crawl at a
// time.
type Crawler struct {
	index   *index.Concurrent
	queue   *workqueue.Queue
	client  *http.Client
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	visited map[string]struct{}
}

// New creates a Crawler. A nil client selects http.DefaultClient.
func New(idx *index.Concurrent, queue *workqueue.Queue, client *http.Client, cfg Config, m *metrics.Metrics) *Crawler {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = 5 << 20
	}
	return &Crawler{
		index:   idx,
		queue:   queue,
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "crawler"),
	}
}

// Crawl indexes up to the configured number of unique URLs starting at
// seed. It returns once every page task has finished.
func (c *Crawler) Crawl(ctx context.Context, seed string) (Stats, error) {
	ctx, span := tracing.StartChildSpan(ctx, "index.crawl")
	defer span.End()
	log := logger.ForRun(ctx, c.logger)
	start := time.Now()

	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return Stats{}, fmt.Errorf("%w: seed url %q: %v", apperrors.ErrInvalidInput, seed, err)
	}
	normalized := Resolve(nil, u.String())
	if normalized == "" {
		return Stats{}, fmt.Errorf("%w: seed url %q must be an absolute http or https url", apperrors.ErrInvalidInput, seed)
	}

	c.mu.Lock()
	c.visited = map[string]struct{}{normalized: {}}
	c.mu.Unlock()

	run := &crawl{Crawler: c, ctx: ctx, log: log}
	if err := run.submit(normalized); err != nil {
		return Stats{}, fmt.Errorf("submitting seed: %w", err)
	}
	if err := c.queue.Finish(); err != nil {
		log.Debug("crawl finished with page errors", "error", err)
	}

	stats := Stats{
		Pages:   int(run.pages.Load()),
		Failed:  int(run.failed.Load()),
		Words:   int(run.words.Load()),
		Elapsed: time.Since(start),
	}
	c.metrics.IndexSize(c.index.NumWords(), c.index.NumLocations())
	span.SetAttr("pages", stats.Pages)
	span.SetAttr("failed", stats.Failed)
	log.Info("crawl complete",
		"seed", normalized,
		"pages", stats.Pages,
		"failed", stats.Failed,
		"words", stats.Words,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// crawl carries the per-call state shared by page tasks.
type crawl struct {
	*Crawler
	ctx context.Context
	log *slog.Logger

	pages, failed, words atomic.Int64
}

func (r *crawl) submit(link string) error {
	return r.queue.Execute(func() error {
		return r.visit(link)
	})
}

func (r *crawl) visit(link string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	page, err := r.fetch(link)
	r.metrics.PageCrawled(err != nil)
	if err != nil {
		r.failed.Add(1)
		r.log.Warn("failed to crawl page", "url", link, "error", err)
		return err
	}
	r.pages.Add(1)

	for _, next := range r.claim(page.Links) {
		if err := r.submit(next); err != nil {
			r.log.Warn("failed to submit link", "url", next, "error", err)
		}
	}

	local := index.New()
	n, err := indexer.AddReader(local, link, strings.NewReader(page.Text))
	if err != nil {
		return err
	}
	r.index.Merge(local)
	r.words.Add(int64(n))
	return nil
}

// claim marks links as visited in order until the limit is reached and
// returns those that were not seen before.
func (r *crawl) claim(links []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fresh []string
	for _, link := range links {
		if len(r.visited) >= r.cfg.Limit {
			break
		}
		if _, ok := r.visited[link]; ok {
			continue
		}
		r.visited[link] = struct{}{}
		fresh = append(fresh, link)
	}
	return fresh
}

func (r *crawl) fetch(link string) (Page, error) {
	var page Page
	err := resilience.WithTimeout(r.ctx, r.cfg.Timeout, "fetch "+link, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return err
		}
		if r.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", r.cfg.UserAgent)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		if !isHTML(resp.Header.Get("Content-Type")) {
			return fmt.Errorf("unsupported content type %q", resp.Header.Get("Content-Type"))
		}
		// Links resolve against the final URL after redirects.
		page, err = Extract(io.LimitReader(resp.Body, r.cfg.MaxPageBytes), resp.Request.URL)
		return err
	})
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}
