// internal/store/store.go

// Package store persists completed run summaries to PostgreSQL. Persistence
// is optional: runs work entirely in memory unless a store URL is
// configured, and a saved run is written all-or-nothing in one transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	target      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	pages_seen  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	selector        TEXT NOT NULL,
	text_content    TEXT NOT NULL,
	element_type    TEXT NOT NULL,
	navigated       BOOLEAN NOT NULL,
	url_before      TEXT NOT NULL,
	url_after       TEXT NOT NULL,
	content_changed BOOLEAN NOT NULL,
	bug_type        TEXT NOT NULL,
	description     TEXT NOT NULL,
	is_visible      BOOLEAN NOT NULL,
	was_clicked     BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, position)
);`

// Store is the PostgreSQL implementation of schemas.ResultStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.ResultStore = (*Store)(nil)

// New wraps an existing pool, verifying the connection and ensuring the
// schema exists.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// Connect opens a pool for the given URL and wraps it.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// SaveRun persists the summary and its ordered result list in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, summary *schemas.RunSummary) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, target, started_at, finished_at, pages_seen) VALUES ($1, $2, $3, $4, $5)`,
		summary.RunID, summary.Target, summary.StartedAt.UTC(), summary.FinishedAt.UTC(), summary.PagesSeen)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(summary.Results) > 0 {
		rows := make([][]any, len(summary.Results))
		for i, r := range summary.Results {
			rows[i] = []any{
				summary.RunID, i,
				r.Selector, r.TextContent, string(r.ElementType),
				r.Navigated, r.URLBefore, r.URLAfter, r.ContentChanged,
				string(r.BugType), r.Description, r.IsVisible, r.WasClicked,
			}
		}
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"results"},
			[]string{"run_id", "position", "selector", "text_content", "element_type",
				"navigated", "url_before", "url_after", "content_changed",
				"bug_type", "description", "is_visible", "was_clicked"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy results: %w", err)
		}
		if int(copied) != len(summary.Results) {
			return fmt.Errorf("mismatch in copied results count: expected %d, got %d", len(summary.Results), copied)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("run persisted",
		zap.String("run_id", summary.RunID), zap.Int("results", len(summary.Results)))
	return nil
}

// GetRun loads a stored summary with its results in original probe order.
func (s *Store) GetRun(ctx context.Context, runID string) (*schemas.RunSummary, error) {
	summary := &schemas.RunSummary{RunID: runID}
	var started, finished time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT target, started_at, finished_at, pages_seen FROM runs WHERE id = $1`, runID).
		Scan(&summary.Target, &started, &finished, &summary.PagesSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	summary.StartedAt = started
	summary.FinishedAt = finished

	rows, err := s.pool.Query(ctx,
		`SELECT selector, text_content, element_type, navigated, url_before, url_after,
		        content_changed, bug_type, description, is_visible, was_clicked
		 FROM results WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results for run %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r schemas.InteractionResult
		var elementType, bugType string
		if err := rows.Scan(&r.Selector, &r.TextContent, &elementType, &r.Navigated,
			&r.URLBefore, &r.URLAfter, &r.ContentChanged, &bugType,
			&r.Description, &r.IsVisible, &r.WasClicked); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		r.ElementType = schemas.ElementType(elementType)
		r.BugType = schemas.BugType(bugType)
		summary.Results = append(summary.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate result rows: %w", err)
	}
	return summary, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
