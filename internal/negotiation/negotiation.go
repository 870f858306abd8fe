// Package negotiation holds the session state machine: one bounded
// back-and-forth exchange between a seller and a buyer over an item or
// item bundle, plus extraction of machine-readable agreements from
// free-form messages.
package negotiation

import (
	"fmt"
	"strings"
	"time"

	"github.com/mfalcon/negotia/internal/scoring"
	"github.com/mfalcon/negotia/internal/terms"
	"github.com/mfalcon/negotia/pkg/models"
)

// Turn is one message from one party. Immutable once appended; ordering
// is the sequence index within the session.
type Turn struct {
	SenderID  string
	Message   string
	Timestamp time.Time
}

// AgreedTerms is the structured result of a recognized agreement. For
// single-item deals only the three scalar dimensions are set. For
// multi-item deals either PerItem or the Total/Quantity aggregate is
// set, with DeliveryDays/UpfrontPct carrying deal-wide values.
type AgreedTerms struct {
	Price        float64
	DeliveryDays float64
	UpfrontPct   float64

	PerItem       map[string]scoring.ItemAgreement
	TotalPrice    float64
	TotalQuantity int
	Aggregate     bool
}

// Scalars returns the agreement as the dimension map used by scoring.
func (a *AgreedTerms) Scalars() map[string]float64 {
	return map[string]float64{
		models.TermPrice:        a.Price,
		models.TermDeliveryDays: a.DeliveryDays,
		models.TermUpfrontPct:   a.UpfrontPct,
	}
}

// Negotiation is one session. Created once per (seller, buyer, item
// set) tuple at swarm setup and mutated only by AddTurn and
// RegisterAgreement; terminal sessions persist for reporting.
type Negotiation struct {
	ID       string
	SellerID string
	BuyerID  string

	// Exactly one of ItemID (single-item) or MultiTerms (bundle) is used.
	ItemID     string
	Terms      terms.ItemTerms
	MultiTerms *terms.MultiItemTerms

	MaxTurns   int
	Turns      []Turn
	Status     string
	FinalTerms *AgreedTerms
}

// New creates an ongoing single-item session.
func New(id, sellerID, buyerID, itemID string, t terms.ItemTerms, maxTurns int) *Negotiation {
	if maxTurns <= 0 {
		maxTurns = models.DefaultMaxTurns
	}
	return &Negotiation{
		ID:       id,
		SellerID: sellerID,
		BuyerID:  buyerID,
		ItemID:   itemID,
		Terms:    t,
		MaxTurns: maxTurns,
		Status:   models.StatusOngoing,
	}
}

// NewMultiItem creates an ongoing multi-item session.
func NewMultiItem(id, sellerID, buyerID string, mt terms.MultiItemTerms, maxTurns int) *Negotiation {
	if maxTurns <= 0 {
		maxTurns = models.DefaultMaxTurns
	}
	return &Negotiation{
		ID:         id,
		SellerID:   sellerID,
		BuyerID:    buyerID,
		MultiTerms: &mt,
		MaxTurns:   maxTurns,
		Status:     models.StatusOngoing,
	}
}

// AddTurn appends a turn. No-op when the session is not ongoing, so the
// scheduler loop stays total. Reaching MaxTurns*2 messages (one per
// side per round) fails the session: the liveness cap against runaway
// exchanges.
func (n *Negotiation) AddTurn(t Turn) {
	if n.Status != models.StatusOngoing {
		return
	}
	n.Turns = append(n.Turns, t)
	if len(n.Turns) >= n.MaxTurns*2 {
		n.Status = models.StatusFailed
	}
}

// RegisterAgreement closes the session with final terms. No-op when the
// session is not ongoing; this is what rejects the second registration
// in an exclusivity race.
func (n *Negotiation) RegisterAgreement(a *AgreedTerms) {
	if n.Status != models.StatusOngoing {
		return
	}
	n.FinalTerms = a
	n.Status = models.StatusAgreement
}

// Fail marks the session failed (round exhaustion is handled by
// AddTurn; this is for exclusivity propagation). No-op once terminal.
func (n *Negotiation) Fail() {
	if n.Status != models.StatusOngoing {
		return
	}
	n.Status = models.StatusFailed
}

// IsFinished reports whether the session reached a terminal status.
func (n *Negotiation) IsFinished() bool {
	return n.Status != models.StatusOngoing
}

// IsMultiItem reports whether this session negotiates an item bundle.
func (n *Negotiation) IsMultiItem() bool {
	return n.MultiTerms != nil
}

// ItemCount returns the number of distinct requested items.
func (n *Negotiation) ItemCount() int {
	if n.MultiTerms == nil {
		return 1
	}
	return len(n.MultiTerms.Requests)
}

// RoundsLeft returns the full buyer+seller rounds remaining.
func (n *Negotiation) RoundsLeft() int {
	return n.MaxTurns - len(n.Turns)/2
}

// RenderHistory returns the conversation as "sender: message" lines.
func (n *Negotiation) RenderHistory() string {
	var b strings.Builder
	for i, t := range n.Turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.SenderID)
		b.WriteString(": ")
		b.WriteString(t.Message)
	}
	return b.String()
}

// LastMessage returns the text of the most recent turn, or "".
func (n *Negotiation) LastMessage() string {
	if len(n.Turns) == 0 {
		return ""
	}
	return n.Turns[len(n.Turns)-1].Message
}

// Summary is a human-readable one-liner for logs and reports. Not used
// by scheduling logic.
func (n *Negotiation) Summary() string {
	subject := n.ItemID
	if n.IsMultiItem() {
		subject = fmt.Sprintf("%d-item bundle", n.ItemCount())
	}
	return fmt.Sprintf("%s: %s vs %s over %s [%s, %d/%d turns]",
		n.ID, n.SellerID, n.BuyerID, subject, n.Status, len(n.Turns), n.MaxTurns*2)
}
