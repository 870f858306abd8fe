// Package postgres is the PostgreSQL implementation of store.Store.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mfalcon/negotia/internal/store"
	"github.com/mfalcon/negotia/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	Pool *pgxpool.Pool
}

// Open opens a PostgreSQL connection pool and runs migrations. dsn may
// be empty to use DATABASE_URL.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("postgres DSN or DATABASE_URL required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 20
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{Pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies embedded migrations in filename order.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`); err != nil {
		return err
	}
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		var n int
		if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = $1`, name).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := s.Pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := s.Pool.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertSession(ctx context.Context, sess store.Session) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions (session_id, seller_id, buyer_id, item_id, status, max_turns, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`,
		sess.SessionID, sess.SellerID, sess.BuyerID, sess.ItemID, sess.Status, sess.MaxTurns, sess.RunID)
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT session_id, seller_id, buyer_id, item_id, status, max_turns, run_id
		FROM sessions WHERE session_id = $1`, sessionID)
	var sess store.Session
	err := row.Scan(&sess.SessionID, &sess.SellerID, &sess.BuyerID, &sess.ItemID, &sess.Status, &sess.MaxTurns, &sess.RunID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) ListSessions(ctx context.Context, runID string, limit int) ([]store.Session, error) {
	if limit <= 0 {
		limit = models.DefaultReportListLimit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT session_id, seller_id, buyer_id, item_id, status, max_turns, run_id
		FROM sessions WHERE ($1 = '' OR run_id = $1) ORDER BY session_id LIMIT $2`,
		runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Session
	for rows.Next() {
		var sess store.Session
		if err := rows.Scan(&sess.SessionID, &sess.SellerID, &sess.BuyerID, &sess.ItemID, &sess.Status, &sess.MaxTurns, &sess.RunID); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceTurns(ctx context.Context, sessionID string, turns []models.TranscriptTurn) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM turns WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	for _, t := range turns {
		if _, err := tx.Exec(ctx, `
			INSERT INTO turns (session_id, seq, sender_id, message, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			sessionID, t.Seq, t.SenderID, t.Message, t.Timestamp.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]models.TranscriptTurn, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT session_id, seq, sender_id, message, created_at
		FROM turns WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TranscriptTurn
	for rows.Next() {
		var t models.TranscriptTurn
		if err := rows.Scan(&t.SessionID, &t.Seq, &t.SenderID, &t.Message, &t.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SaveResult(ctx context.Context, r models.SessionResult) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO results (session_id, seller_id, buyer_id, status, seller_score, buyer_score, gap)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			status = EXCLUDED.status,
			seller_score = EXCLUDED.seller_score,
			buyer_score = EXCLUDED.buyer_score,
			gap = EXCLUDED.gap`,
		r.SessionID, r.SellerID, r.BuyerID, r.Status, r.SellerScore, r.BuyerScore, r.Gap)
	return err
}

func (s *Store) ListResults(ctx context.Context, limit int) ([]models.SessionResult, error) {
	if limit <= 0 {
		limit = models.DefaultReportListLimit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT session_id, seller_id, buyer_id, status, seller_score, buyer_score, gap, created_at
		FROM results ORDER BY created_at DESC, session_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SessionResult
	for rows.Next() {
		var r models.SessionResult
		if err := rows.Scan(&r.SessionID, &r.SellerID, &r.BuyerID, &r.Status, &r.SellerScore, &r.BuyerScore, &r.Gap, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SaveSummary(ctx context.Context, sum models.SwarmSummary) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO summaries (run_id, agreed_count, failed_count, avg_seller, avg_buyer)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			agreed_count = EXCLUDED.agreed_count,
			failed_count = EXCLUDED.failed_count,
			avg_seller = EXCLUDED.avg_seller,
			avg_buyer = EXCLUDED.avg_buyer`,
		sum.RunID, sum.AgreedCount, sum.FailedCount, sum.AvgSeller, sum.AvgBuyer)
	return err
}

func (s *Store) ListSummaries(ctx context.Context, limit int) ([]models.SwarmSummary, error) {
	if limit <= 0 {
		limit = models.DefaultReportListLimit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT run_id, agreed_count, failed_count, avg_seller, avg_buyer
		FROM summaries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SwarmSummary
	for rows.Next() {
		var sum models.SwarmSummary
		if err := rows.Scan(&sum.RunID, &sum.AgreedCount, &sum.FailedCount, &sum.AvgSeller, &sum.AvgBuyer); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}
