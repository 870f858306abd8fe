// Package sqlite is the SQLite implementation of store.Store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mfalcon/negotia/internal/store"
	"github.com/mfalcon/negotia/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the SQLite implementation of store.Store.
type Store struct {
	DB *sql.DB
}

// Open opens a SQLite database at home/protected/db.sqlite and runs
// migrations.
func Open(home string) (*Store, error) {
	dbPath := filepath.Join(home, "protected", "db.sqlite")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{DB: db}
	if err := s.initPragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initPragmas(ctx context.Context) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.DB.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("sqlite pragma: %w", err)
		}
	}
	return nil
}

// Migrate applies embedded migrations in filename order, recording each
// in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`); err != nil {
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
		if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := s.DB.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := s.DB.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertSession(ctx context.Context, sess store.Session) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sessions (session_id, seller_id, buyer_id, item_id, status, max_turns, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET status = excluded.status, updated_at = CURRENT_TIMESTAMP`,
		sess.SessionID, sess.SellerID, sess.BuyerID, sess.ItemID, sess.Status, sess.MaxTurns, sess.RunID)
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT session_id, seller_id, buyer_id, item_id, status, max_turns, run_id
		FROM sessions WHERE session_id = ?`, sessionID)
	var sess store.Session
	err := row.Scan(&sess.SessionID, &sess.SellerID, &sess.BuyerID, &sess.ItemID, &sess.Status, &sess.MaxTurns, &sess.RunID)
	if errors.Is(err, sql.ErrNoRows) {
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
	rows, err := s.DB.QueryContext(ctx, `
		SELECT session_id, seller_id, buyer_id, item_id, status, max_turns, run_id
		FROM sessions WHERE (? = '' OR run_id = ?) ORDER BY session_id LIMIT ?`,
		runID, runID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	for _, t := range turns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO turns (session_id, seq, sender_id, message, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			sessionID, t.Seq, t.SenderID, t.Message, t.Timestamp.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]models.TranscriptTurn, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT session_id, seq, sender_id, message, created_at
		FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO results (session_id, seller_id, buyer_id, status, seller_score, buyer_score, gap)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			seller_score = excluded.seller_score,
			buyer_score = excluded.buyer_score,
			gap = excluded.gap`,
		r.SessionID, r.SellerID, r.BuyerID, r.Status, r.SellerScore, r.BuyerScore, r.Gap)
	return err
}

func (s *Store) ListResults(ctx context.Context, limit int) ([]models.SessionResult, error) {
	if limit <= 0 {
		limit = models.DefaultReportListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT session_id, seller_id, buyer_id, status, seller_score, buyer_score, gap, created_at
		FROM results ORDER BY created_at DESC, session_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO summaries (run_id, agreed_count, failed_count, avg_seller, avg_buyer)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			agreed_count = excluded.agreed_count,
			failed_count = excluded.failed_count,
			avg_seller = excluded.avg_seller,
			avg_buyer = excluded.avg_buyer`,
		sum.RunID, sum.AgreedCount, sum.FailedCount, sum.AvgSeller, sum.AvgBuyer)
	return err
}

func (s *Store) ListSummaries(ctx context.Context, limit int) ([]models.SwarmSummary, error) {
	if limit <= 0 {
		limit = models.DefaultReportListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT run_id, agreed_count, failed_count, avg_seller, avg_buyer
		FROM summaries ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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
	return s.DB.Close()
}
