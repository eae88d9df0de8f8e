package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "trace-1")
	assert.Same(t, root, SpanFromContext(ctx))

	buildCtx, build := StartChildSpan(ctx, "build")
	_, walk := StartChildSpan(buildCtx, "walk")
	walk.SetAttr("files", 28)
	time.Sleep(time.Millisecond)
	walk.End()
	build.End()
	root.End()

	require.Len(t, root.Children, 1)
	require.Len(t, build.Children, 1)
	assert.Equal(t, "trace-1", walk.TraceID)
	assert.Equal(t, 28, walk.Attrs["files"])
	assert.GreaterOrEqual(t, root.Duration, walk.Duration)

	d := walk.Duration
	walk.End()
	assert.Equal(t, d, walk.Duration, "End is idempotent")
}

func TestDetachedChild(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestNilSpanIsSafe(t *testing.T) {
	var s *Span
	s.End()
	s.SetAttr("k", 1)
	s.Log(nil)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "run", "trace-2")
	_, child := StartChildSpan(ctx, "evaluate")
	child.SetAttr("queries", 3)
	child.End()
	root.End()
	root.Log(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=run")
	assert.Contains(t, lines[0], "depth=0")
	assert.Contains(t, lines[1], "span=evaluate")
	assert.Contains(t, lines[1], "depth=1")
	assert.Contains(t, lines[1], "queries=3")
}
