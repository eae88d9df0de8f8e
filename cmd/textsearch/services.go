package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/report"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/redis"
)

// services holds the optional infrastructure of a run. Any field may be nil
// when the dependency is disabled or unreachable; the run continues without
// it.
type services struct {
	redis      *pkgredis.Client
	cache      *cache.QueryCache
	producer   *kafka.Producer
	aggregator *analytics.Aggregator
	collector  *analytics.Collector
	db         *database.Client
	store      *report.Store
}

func openServices(ctx context.Context, cfg *config.Config, m *metrics.Metrics) *services {
	s := &services{aggregator: analytics.NewAggregator()}

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			s.redis = client
			s.cache = cache.New(client, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", client.Addr(), "ttl", cfg.Redis.CacheTTL)
		}
	}

	var publisher analytics.Publisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		s.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunEvents)
		publisher = s.producer
		slog.Info("run events enabled", "topic", s.producer.Topic(), "brokers", cfg.Kafka.Brokers)
	}
	s.collector = analytics.NewCollector(publisher, s.aggregator, 10000, 100, time.Second)
	s.collector.Start(ctx)

	if cfg.Database.Driver != "" {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, run reports disabled", "error", err)
		} else if store, err := report.NewStore(ctx, db); err != nil {
			slog.Warn("report store unavailable, run reports disabled", "error", err)
			db.Close()
		} else {
			s.db = db
			s.store = store
		}
	}
	return s
}

// register adds a readiness check for each connected dependency.
func (s *services) register(checker *health.Checker) {
	if s.redis != nil {
		checker.Register("redis", health.PingCheck(s.redis.Ping, true))
	}
	if s.store != nil {
		checker.Register("database", health.PingCheck(s.store.Ping, true))
	}
}

func (s *services) recordRun(ctx context.Context, run report.Run) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(ctx, run); err != nil {
		slog.Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}

func (s *services) saveSnapshot(ctx context.Context, runID string) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSnapshot(ctx, runID, s.aggregator.Stats()); err != nil {
		slog.Warn("failed to save search snapshot", "run_id", runID, "error", err)
	}
}

// Close flushes buffered events and releases every connection.
func (s *services) Close() error {
	var errs []error
	s.collector.Close()
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing kafka producer: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	return errors.Join(errs...)
}
