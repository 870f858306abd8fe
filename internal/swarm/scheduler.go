package swarm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mfalcon/negotia/internal/agent"
	"github.com/mfalcon/negotia/internal/events"
	"github.com/mfalcon/negotia/internal/negotiation"
	"github.com/mfalcon/negotia/internal/otel"
	"github.com/mfalcon/negotia/internal/store"
	"github.com/mfalcon/negotia/internal/translog"
	"github.com/mfalcon/negotia/pkg/models"
)

// Failure reasons recorded on session_failed metrics.
const (
	reasonRoundCap    = "round_cap"
	reasonExclusivity = "exclusivity"
)

// Scheduler runs all sessions to conclusion. Decide calls may run
// concurrently across sessions (bounded by MaxConcurrent); every
// session mutation and every agreement commit happens under one
// mutex, so exclusivity is resolved deterministically.
type Scheduler struct {
	Sellers  map[string]*agent.Seller
	Buyers   map[string]*agent.Buyer
	Sessions []*negotiation.Negotiation
	RunID    string

	// Optional collaborators. Persistence failures are logged, never
	// fed back into scheduling.
	Store       store.Store
	Transcripts *translog.Writer
	Hub         *events.Hub

	MaxConcurrent int

	ledger *Ledger
	mu     sync.Mutex
}

// Run drives passes until no session is ongoing. Within one pass each
// ongoing session gets a buyer turn and, unless the buyer's message
// closed the deal, a seller turn. Guaranteed to terminate: every
// session's turn count is bounded by its round cap, and even a failed
// provider call consumes a turn.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.ledger == nil {
		s.ledger = NewLedger()
	}
	max := s.MaxConcurrent
	if max <= 0 {
		max = models.DefaultMaxConcurrent
	}
	s.seedStore(ctx)

	for {
		ongoing := s.ongoingSessions()
		otel.SetOngoingSessions(len(ongoing))
		if len(ongoing) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		sem := make(chan struct{}, max)
		var wg sync.WaitGroup
		for _, n := range ongoing {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			}
			wg.Add(1)
			go func(n *negotiation.Negotiation) {
				defer wg.Done()
				defer func() { <-sem }()
				s.runSession(ctx, n)
			}(n)
		}
		wg.Wait()
	}

	otel.SetOngoingSessions(0)
	s.publish(events.Event{Type: events.TypeRunDone})
	slog.Info("swarm run finished", "run_id", s.RunID, "sessions", len(s.Sessions))
	return nil
}

// Results returns the scored outcome of the run (only meaningful after
// Run returns nil).
func (s *Scheduler) Results() ([]models.SessionResult, models.SwarmSummary) {
	results, summary := Evaluate(s.Sessions, s.Sellers, s.Buyers)
	summary.RunID = s.RunID
	return results, summary
}

func (s *Scheduler) ongoingSessions() []*negotiation.Negotiation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*negotiation.Negotiation
	for _, n := range s.Sessions {
		if !n.IsFinished() {
			out = append(out, n)
		}
	}
	return out
}

// runSession advances one session by one scheduling pass. Exclusivity
// is checked lazily before each turn: a party that committed elsewhere
// starves out its remaining sessions here.
func (s *Scheduler) runSession(ctx context.Context, n *negotiation.Negotiation) {
	// Buyer speaks first. An accepting buyer message ends the round
	// without a seller reply.
	if !s.takeTurn(ctx, n, s.Buyers[n.BuyerID]) {
		return
	}
	s.takeTurn(ctx, n, s.Sellers[n.SellerID])
}

// takeTurn requests one decision, appends it, and attempts term
// extraction. Returns false when the session concluded (agreement,
// round cap, or exclusivity) and the pass should stop here.
//
// The session view is snapshotted under the lock; only the provider
// call itself runs unlocked, so concurrent sessions never observe each
// other's live turn lists.
func (s *Scheduler) takeTurn(ctx context.Context, n *negotiation.Negotiation, d agent.Decider) bool {
	s.mu.Lock()
	if n.IsFinished() {
		s.mu.Unlock()
		return false
	}
	if s.ledger.Committed(n.SellerID, n.BuyerID) {
		s.failLocked(n, reasonExclusivity)
		s.mu.Unlock()
		return false
	}
	view := d.Snapshot(n)
	s.mu.Unlock()

	start := time.Now()
	msg, err := d.Decide(ctx, view)
	otel.RecordDecide(ctx, d.Role(), time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.IsFinished() {
		// A sibling session closed this one while the provider was
		// thinking; the decision is discarded.
		return false
	}
	if s.ledger.Committed(n.SellerID, n.BuyerID) {
		s.failLocked(n, reasonExclusivity)
		return false
	}

	if err != nil {
		// Provider failure is recovered locally: no agreement, one
		// round consumed. Repeated failures exhaust the round cap.
		slog.Warn("decision provider failed",
			"session", n.ID, "agent", d.ID(), "err", err)
		msg = "(no response)"
	}

	n.AddTurn(negotiation.Turn{SenderID: d.ID(), Message: msg, Timestamp: time.Now().UTC()})
	otel.RecordTurn(ctx, n.ID, d.Role())
	s.publish(events.Event{Type: events.TypeTurn, SessionID: n.ID, SenderID: d.ID(), Message: msg})

	if n.Status == models.StatusFailed {
		// Round cap reached on this append.
		otel.RecordFailure(ctx, n.ID, reasonRoundCap)
		s.persistLocked(n)
		s.publish(events.Event{Type: events.TypeSessionFailed, SessionID: n.ID, Status: n.Status})
		return false
	}

	if err == nil {
		if agreed := negotiation.ExtractTerms(n, msg); agreed != nil {
			if s.ledger.Commit(n.SellerID, n.BuyerID) {
				n.RegisterAgreement(agreed)
				otel.RecordAgreement(ctx, n.ID, n.SellerID, n.BuyerID)
				s.persistLocked(n)
				s.publish(events.Event{Type: events.TypeAgreement, SessionID: n.ID, SenderID: d.ID(), Status: n.Status})
				slog.Info("agreement registered",
					"session", n.ID, "seller", n.SellerID, "buyer", n.BuyerID)
				s.propagateLocked(n)
				return false
			}
			// Lost the commit race to a sibling in the same pass; the
			// state machine's no-op rule keeps this session out of
			// agreement and it fails here.
			s.failLocked(n, reasonExclusivity)
			return false
		}
	}

	s.persistLocked(n)
	return true
}

// propagateLocked fails every other ongoing session touching either
// party of the agreed session. Immediate and independent of the order
// the scheduler visits sessions.
func (s *Scheduler) propagateLocked(agreedSession *negotiation.Negotiation) {
	for _, other := range s.Sessions {
		if other.ID == agreedSession.ID || other.IsFinished() {
			continue
		}
		if other.SellerID == agreedSession.SellerID || other.BuyerID == agreedSession.BuyerID {
			s.failLocked(other, reasonExclusivity)
		}
	}
}

func (s *Scheduler) failLocked(n *negotiation.Negotiation, reason string) {
	n.Fail()
	otel.RecordFailure(context.Background(), n.ID, reason)
	s.persistLocked(n)
	s.publish(events.Event{Type: events.TypeSessionFailed, SessionID: n.ID, Status: n.Status})
	slog.Info("session failed", "session", n.ID, "reason", reason)
}

// persistLocked saves the transcript and store row after a mutation.
func (s *Scheduler) persistLocked(n *negotiation.Negotiation) {
	if s.Transcripts != nil {
		if err := s.Transcripts.Save(n); err != nil {
			slog.Error("transcript save failed", "session", n.ID, "err", err)
		}
	}
	if s.Store == nil {
		return
	}
	ctx := context.Background()
	if err := s.Store.UpsertSession(ctx, s.storeSession(n)); err != nil {
		slog.Error("session save failed", "session", n.ID, "err", err)
	}
	turns := make([]models.TranscriptTurn, len(n.Turns))
	for i, t := range n.Turns {
		turns[i] = models.TranscriptTurn{
			SessionID: n.ID,
			Seq:       i,
			SenderID:  t.SenderID,
			Message:   t.Message,
			Timestamp: t.Timestamp,
		}
	}
	if err := s.Store.ReplaceTurns(ctx, n.ID, turns); err != nil {
		slog.Error("turns save failed", "session", n.ID, "err", err)
	}
}

func (s *Scheduler) storeSession(n *negotiation.Negotiation) store.Session {
	return store.Session{
		SessionID: n.ID,
		SellerID:  n.SellerID,
		BuyerID:   n.BuyerID,
		ItemID:    n.ItemID,
		Status:    n.Status,
		MaxTurns:  n.MaxTurns,
		RunID:     s.RunID,
	}
}

func (s *Scheduler) seedStore(ctx context.Context) {
	if s.Store == nil {
		return
	}
	for _, n := range s.Sessions {
		if err := s.Store.UpsertSession(ctx, s.storeSession(n)); err != nil {
			slog.Error("session seed failed", "session", n.ID, "err", err)
		}
	}
}

func (s *Scheduler) publish(ev events.Event) {
	if s.Hub != nil {
		s.Hub.Publish(ev)
	}
}
