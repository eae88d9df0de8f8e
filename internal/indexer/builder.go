// Package indexer turns text files and web pages into inverted index
// entries. Builder indexes one file at a time on the calling goroutine;
// ConcurrentBuilder fans files out over a work queue and merges a private
// index per file into a shared one.
package indexer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/tracing"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/workqueue"
)

// Stats summarizes one build.
type Stats struct {
	Files   int           `json:"files"`
	Failed  int           `json:"failed"`
	Words   int           `json:"words"`
	Elapsed time.Duration `json:"elapsed"`
}

// IndexBuilder indexes every text file beneath a root path.
type IndexBuilder interface {
	Build(ctx context.Context, root string) (Stats, error)
}

var (
	_ IndexBuilder = (*Builder)(nil)
	_ IndexBuilder = (*ConcurrentBuilder)(nil)
)

// opener opens a file for indexing.
type opener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// AddFile indexes the file at path under its own path as the location and
// returns the number of words added.
func AddFile(idx index.Writer, path string) (int, error) {
	return addFile(idx, path, openFile)
}

func addFile(idx index.Writer, path string, open opener) (int, error) {
	f, err := open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return AddReader(idx, path, f)
}

// indexFile indexes path into a private index and returns it only if the
// whole file was read, so a failed file contributes nothing.
func indexFile(path string, open opener) (*index.InvertedIndex, int, error) {
	local := index.New()
	n, err := addFile(local, path, open)
	if err != nil {
		return nil, 0, err
	}
	return local, n, nil
}

// AddReader indexes r line by line under location. Positions start at 1 and
// advance by one per stem across the whole stream.
func AddReader(idx index.Writer, location string, r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	position := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			words := tokenizer.Normalize(line)
			idx.AddAll(words, location, position+1)
			position += len(words)
		}
		if errors.Is(err, io.EOF) {
			return position, nil
		}
		if err != nil {
			return position, fmt.Errorf("reading %s: %w", location, err)
		}
	}
}

// Builder indexes files serially into any index.Writer.
type Builder struct {
	index      index.Writer
	open       opener
	extensions []string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewBuilder creates a serial builder. A nil extensions list selects
// DefaultExtensions.
func NewBuilder(idx index.Writer, extensions []string, m *metrics.Metrics) *Builder {
	return &Builder{
		index:      idx,
		open:       openFile,
		extensions: extensions,
		metrics:    m,
		logger:     slog.Default().With("component", "builder"),
	}
}

// AddFile indexes a single file. A file that fails part way through leaves
// the index unchanged.
func (b *Builder) AddFile(path string) (int, error) {
	local, n, err := indexFile(path, b.open)
	if err != nil {
		return 0, err
	}
	b.index.Merge(local)
	return n, nil
}

// Build indexes root, which may be a single file or a directory. Files that
// cannot be read are logged, counted as failed and contribute no words;
// only an unusable root is returned as an error.
func (b *Builder) Build(ctx context.Context, root string) (Stats, error) {
	ctx, span := tracing.StartChildSpan(ctx, "index.build")
	defer span.End()
	log := logger.ForRun(ctx, b.logger)
	start := time.Now()

	var stats Stats
	files, err := ListCandidateFiles(root, b.extensions, skipLogger(log))
	if err != nil {
		return stats, err
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("build interrupted: %w", err)
		}
		n, err := b.AddFile(path)
		stats.Files++
		stats.Words += n
		if err != nil {
			stats.Failed++
			log.Warn("failed to index file", "path", path, "error", err)
		}
		b.metrics.FileIndexed(err != nil)
	}
	stats.Elapsed = time.Since(start)

	span.SetAttr("files", stats.Files)
	span.SetAttr("failed", stats.Failed)
	log.Info("index built",
		"root", root,
		"files", stats.Files,
		"failed", stats.Failed,
		"words", stats.Words,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// ConcurrentBuilder indexes each file on a queue worker into a private
// index and merges the result into a shared Concurrent index, so the shared
// write lock is taken once per file.
type ConcurrentBuilder struct {
	index      *index.Concurrent
	open       opener
	queue      *workqueue.Queue
	extensions []string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewConcurrentBuilder creates a builder that submits work to queue. The
// queue may be shared with other producers; Build waits on Finish before
// returning.
func NewConcurrentBuilder(idx *index.Concurrent, queue *workqueue.Queue, extensions []string, m *metrics.Metrics) *ConcurrentBuilder {
	return &ConcurrentBuilder{
		index:      idx,
		open:       openFile,
		queue:      queue,
		extensions: extensions,
		metrics:    m,
		logger:     slog.Default().With("component", "concurrent-builder"),
	}
}

// Build indexes root in parallel. It returns after every submitted file has
// been merged or has failed.
func (b *ConcurrentBuilder) Build(ctx context.Context, root string) (Stats, error) {
	ctx, span := tracing.StartChildSpan(ctx, "index.build")
	defer span.End()
	log := logger.ForRun(ctx, b.logger)
	start := time.Now()

	var stats Stats
	files, err := ListCandidateFiles(root, b.extensions, skipLogger(log))
	if err != nil {
		return stats, err
	}

	var words, failed, submitted atomic.Int64
	var interrupted error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			interrupted = fmt.Errorf("build interrupted: %w", err)
			break
		}
		err := b.queue.Execute(func() error {
			local, n, err := indexFile(path, b.open)
			b.metrics.FileIndexed(err != nil)
			if err != nil {
				failed.Add(1)
				log.Warn("failed to index file", "path", path, "error", err)
				return err
			}
			b.index.Merge(local)
			words.Add(int64(n))
			return nil
		})
		if err != nil {
			interrupted = fmt.Errorf("submitting %s: %w", path, err)
			break
		}
		submitted.Add(1)
	}
	if err := b.queue.Finish(); err != nil {
		log.Debug("build finished with file errors", "error", err)
	}

	stats = Stats{
		Files:   int(submitted.Load()),
		Failed:  int(failed.Load()),
		Words:   int(words.Load()),
		Elapsed: time.Since(start),
	}
	b.metrics.IndexSize(b.index.NumWords(), b.index.NumLocations())
	span.SetAttr("files", stats.Files)
	span.SetAttr("failed", stats.Failed)
	span.SetAttr("workers", b.queue.Workers())
	if interrupted != nil {
		return stats, interrupted
	}
	log.Info("index built",
		"root", root,
		"files", stats.Files,
		"failed", stats.Failed,
		"words", stats.Words,
		"workers", b.queue.Workers(),
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

func skipLogger(log *slog.Logger) func(path string, err error) {
	return func(path string, err error) {
		log.Warn("skipping unreadable path", "path", path, "error", err)
	}
}
