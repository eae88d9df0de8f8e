package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/jsonout"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/workqueue"
)

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func makeCorpus(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "fox runs")
	writeFile(t, filepath.Join(root, "b.txt"), "fox jumps fast")
	writeFile(t, filepath.Join(root, "nested", "deeper", "c.TEXT"), "The quick brown fox\njumps over the lazy dog\n\nagain and again")
	writeFile(t, filepath.Join(root, "nested", "skip.md"), "never indexed")
	for i := range 25 {
		var b strings.Builder
		for j := range 40 {
			fmt.Fprintf(&b, "word%c line%d computing computer ", 'a'+rune((i+j)%26), j%5)
			if j%7 == 0 {
				b.WriteString("\n")
			}
		}
		writeFile(t, filepath.Join(root, "bulk", fmt.Sprintf("file-%02d.txt", i)), b.String())
	}
	return root
}

func render(t *testing.T, idx index.Index) (string, string) {
	t.Helper()
	var indexOut, countsOut bytes.Buffer
	require.NoError(t, idx.View(func(inner *index.InvertedIndex) error {
		return jsonout.IndexTo(&indexOut, inner)
	}))
	require.NoError(t, jsonout.CountsTo(&countsOut, idx.Counts()))
	return indexOut.String(), countsOut.String()
}

func TestAddReaderPositionsSpanLines(t *testing.T) {
	idx := index.New()
	n, err := AddReader(idx, "doc", strings.NewReader("Foxes run\n\n123\nfox jumping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{1, 3}, idx.Positions("fox", "doc"))
	assert.Equal(t, []int{2}, idx.Positions("run", "doc"))
	assert.Equal(t, []int{4}, idx.Positions("jump", "doc"))
	assert.Equal(t, 4, idx.Count("doc"))
}

func TestBuilderFoxScenario(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	writeFile(t, a, "fox runs")
	writeFile(t, b, "fox jumps fast")

	idx := index.New()
	stats, err := NewBuilder(idx, nil, nil).Build(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 5, stats.Words)

	results := idx.ExactSearch([]string{"fox"})
	require.Len(t, results, 2)
	assert.Equal(t, index.Result{Location: a, Count: 1, Score: 0.5}, results[0])
	assert.Equal(t, index.Result{Location: b, Count: 1, Score: 1.0 / 3}, results[1])
}

func TestBuilderSkipsNonTextFiles(t *testing.T) {
	root := makeCorpus(t)
	idx := index.New()
	stats, err := NewBuilder(idx, nil, nil).Build(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 28, stats.Files)
	assert.Zero(t, stats.Failed)
	assert.False(t, idx.HasWord("never"))
	assert.True(t, idx.HasLocation("lazi", filepath.Join(root, "nested", "deeper", "c.TEXT")))
}

func TestBuilderAcceptsSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "only.txt")
	writeFile(t, path, "a single fox")

	idx := index.New()
	stats, err := NewBuilder(idx, nil, nil).Build(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, []string{path}, idx.Locations("fox"))
}

func TestBuildMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := NewBuilder(index.New(), nil, nil).Build(context.Background(), missing)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPath)

	q := workqueue.New(2, nil)
	defer q.Shutdown()
	_, err = NewConcurrentBuilder(index.NewConcurrent(), q, nil, nil).Build(context.Background(), missing)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPath)
}

func TestConcurrentBuildMatchesSerialOutput(t *testing.T) {
	root := makeCorpus(t)

	serial := index.New()
	_, err := NewBuilder(serial, nil, nil).Build(context.Background(), root)
	require.NoError(t, err)
	wantIndex, wantCounts := render(t, serial)

	for _, workers := range []int{1, 2, 5, 16} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			q := workqueue.New(workers, nil)
			defer q.Shutdown()

			shared := index.NewConcurrent()
			stats, err := NewConcurrentBuilder(shared, q, nil, nil).Build(context.Background(), root)
			require.NoError(t, err)
			assert.Equal(t, 28, stats.Files)

			gotIndex, gotCounts := render(t, shared)
			assert.Equal(t, wantIndex, gotIndex)
			assert.Equal(t, wantCounts, gotCounts)
		})
	}
}

func TestBuildStopsWhenCancelled(t *testing.T) {
	root := makeCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(index.New(), nil, nil).Build(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)

	q := workqueue.New(2, nil)
	defer q.Shutdown()
	stats, err := NewConcurrentBuilder(index.NewConcurrent(), q, nil, nil).Build(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Files)
}

var errDiskRead = errors.New("input/output error")

// failingOpen serves broken for one path: a first line that reads fine and
// then a read error. Every other path is opened from disk.
func failingOpen(broken string) opener {
	return func(path string) (io.ReadCloser, error) {
		if path == broken {
			return io.NopCloser(io.MultiReader(
				strings.NewReader("partial words\n"),
				iotest.ErrReader(errDiskRead),
			)), nil
		}
		return openFile(path)
	}
}

func TestAddReaderStopsOnReadError(t *testing.T) {
	idx := index.New()
	r := io.MultiReader(strings.NewReader("fox runs\n"), iotest.ErrReader(errDiskRead))
	n, err := AddReader(idx, "doc", r)
	assert.ErrorIs(t, err, errDiskRead)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1}, idx.Positions("fox", "doc"))
}

func TestBuilderSkipsFailedFile(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	c := filepath.Join(root, "c.txt")
	writeFile(t, a, "fox runs")
	writeFile(t, b, "never seen")
	writeFile(t, c, "dog sleeps")

	check := func(t *testing.T, idx index.Index, stats Stats) {
		t.Helper()
		assert.Equal(t, 3, stats.Files)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 4, stats.Words, "a failed file contributes no words")
		assert.False(t, idx.HasWord("partial"))
		assert.Zero(t, idx.Count(b))
		assert.Equal(t, []string{a}, idx.Locations("fox"))
		assert.Equal(t, []string{c}, idx.Locations("dog"))
	}

	serial := index.New()
	sb := NewBuilder(serial, nil, nil)
	sb.open = failingOpen(b)
	stats, err := sb.Build(context.Background(), root)
	require.NoError(t, err)
	check(t, serial, stats)
	wantIndex, wantCounts := render(t, serial)

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			q := workqueue.New(workers, nil)
			defer q.Shutdown()

			shared := index.NewConcurrent()
			cb := NewConcurrentBuilder(shared, q, nil, nil)
			cb.open = failingOpen(b)

			done := make(chan struct{})
			var stats Stats
			go func() {
				defer close(done)
				stats, err = cb.Build(context.Background(), root)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("build did not return after a failed file")
			}
			require.NoError(t, err)
			check(t, shared, stats)

			gotIndex, gotCounts := render(t, shared)
			assert.Equal(t, wantIndex, gotIndex)
			assert.Equal(t, wantCounts, gotCounts)
		})
	}
}

func TestBuilderSkipsFileThatCannotBeOpened(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	writeFile(t, a, "fox runs")
	writeFile(t, b, "fox jumps")

	q := workqueue.New(2, nil)
	defer q.Shutdown()
	shared := index.NewConcurrent()
	cb := NewConcurrentBuilder(shared, q, nil, nil)
	cb.open = func(path string) (io.ReadCloser, error) {
		if path == a {
			return nil, os.ErrNotExist
		}
		return openFile(path)
	}

	stats, err := cb.Build(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, []string{b}, shared.Locations("fox"))
}
