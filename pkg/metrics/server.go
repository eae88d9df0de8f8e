package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NewMux routes /metrics to the scrape handler for g and serves a small
// index page at the root listing the registered metric families.
func NewMux(g prometheus.Gatherer) *http.ServeMux {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(g))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Text Search Metrics</h1><p><a href="/metrics">/metrics</a></p><ul>`)
		if families, err := g.Gather(); err == nil {
			for _, f := range families {
				fmt.Fprintf(w, "<li>%s</li>", f.GetName())
			}
		}
		fmt.Fprint(w, `</ul></body></html>`)
	})
	return mux
}

// Serve exposes g on addr until ctx is cancelled, then shuts the listener
// down within grace.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, grace time.Duration, logger *slog.Logger) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      NewMux(g),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serving metrics: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("stopping metrics server: %w", err)
	}
	return nil
}
