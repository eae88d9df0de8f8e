// Package report records a summary row per driver run and snapshots of the
// search statistics gathered while serving.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/database"
)

// schema is portable between Postgres and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		mode        TEXT NOT NULL,
		root        TEXT NOT NULL DEFAULT '',
		seed        TEXT NOT NULL DEFAULT '',
		workers     INTEGER NOT NULL DEFAULT 0,
		files       INTEGER NOT NULL DEFAULT 0,
		pages       INTEGER NOT NULL DEFAULT 0,
		words       INTEGER NOT NULL DEFAULT 0,
		locations   INTEGER NOT NULL DEFAULT 0,
		queries     INTEGER NOT NULL DEFAULT 0,
		failures    INTEGER NOT NULL DEFAULT 0,
		started_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS search_snapshots (
		run_id      TEXT NOT NULL,
		data        TEXT NOT NULL,
		captured_at TIMESTAMP NOT NULL
	)`,
}

// Run is the summary of one driver invocation.
type Run struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Root       string    `json:"root"`
	Seed       string    `json:"seed"`
	Workers    int       `json:"workers"`
	Files      int       `json:"files"`
	Pages      int       `json:"pages"`
	Words      int       `json:"words"`
	Locations  int       `json:"locations"`
	Queries    int       `json:"queries"`
	Failures   int       `json:"failures"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store persists runs and search snapshots.
type Store struct {
	db     *database.Client
	logger *slog.Logger
}

// NewStore creates the tables if needed.
func NewStore(ctx context.Context, db *database.Client) (*Store, error) {
	for _, stmt := range schema {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating report schema: %w", err)
		}
	}
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "report-store", "driver", db.Driver()),
	}, nil
}

// Record inserts run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("recording run: empty id")
	}
	_, err := s.db.DB.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO runs (id, mode, root, seed, workers, files, pages, words,
			locations, queries, failures, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Mode, run.Root, run.Seed, run.Workers, run.Files, run.Pages,
		run.Words, run.Locations, run.Queries, run.Failures,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	s.logger.Info("run recorded", "run_id", run.ID, "mode", run.Mode)
	return nil
}

// Get loads one run. It returns nil, nil when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.DB.QueryRowContext(ctx, s.db.Rebind(selectRuns+` WHERE id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		s.db.Rebind(selectRuns+` ORDER BY started_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// SaveSnapshot stores the current search statistics for runID.
func (s *Store) SaveSnapshot(ctx context.Context, runID string, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO search_snapshots (run_id, data, captured_at) VALUES (?, ?, ?)`),
		runID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving search snapshot: %w", err)
	}
	s.logger.Info("search snapshot saved", "run_id", runID, "total_searches", stats.TotalSearches)
	return nil
}

// LatestSnapshot loads the most recent snapshot. It returns nil, nil if
// none exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM search_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const selectRuns = `SELECT id, mode, root, seed, workers, files, pages, words,
	locations, queries, failures, started_at, finished_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Mode, &run.Root, &run.Seed, &run.Workers,
		&run.Files, &run.Pages, &run.Words, &run.Locations, &run.Queries,
		&run.Failures, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
