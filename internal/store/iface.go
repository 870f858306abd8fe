// Package store defines the persistence interface for sessions,
// transcripts, and scored results. Implementations: *sqlite.Store
// (SQLite, the default) and *postgres.Store (PostgreSQL).
package store

import (
	"context"

	"github.com/mfalcon/negotia/pkg/models"
)

// Session is the persisted view of a negotiation session.
type Session struct {
	SessionID string
	SellerID  string
	BuyerID   string
	ItemID    string // "" for multi-item bundles
	Status    string
	MaxTurns  int
	RunID     string
}

// Store is the persistence interface for negotiation runs.
type Store interface {
	// Sessions
	UpsertSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ListSessions(ctx context.Context, runID string, limit int) ([]Session, error)

	// Transcripts: the full ordered turn list, replaced on each save so
	// the stored transcript always mirrors the in-memory session.
	ReplaceTurns(ctx context.Context, sessionID string, turns []models.TranscriptTurn) error
	ListTurns(ctx context.Context, sessionID string) ([]models.TranscriptTurn, error)

	// Results
	SaveResult(ctx context.Context, r models.SessionResult) error
	ListResults(ctx context.Context, limit int) ([]models.SessionResult, error)
	SaveSummary(ctx context.Context, s models.SwarmSummary) error
	ListSummaries(ctx context.Context, limit int) ([]models.SwarmSummary, error)

	// Lifecycle
	Close() error
}
