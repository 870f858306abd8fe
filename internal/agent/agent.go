// Package agent implements the two negotiating parties. Sellers and
// buyers share one decision contract: given a session's state, produce
// the next message. The message itself comes from a pluggable provider;
// this package only assembles the session view and renders the prompt.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mfalcon/negotia/internal/agent/provider"
	"github.com/mfalcon/negotia/internal/negotiation"
	"github.com/mfalcon/negotia/internal/prompt"
	"github.com/mfalcon/negotia/internal/terms"
	"github.com/mfalcon/negotia/pkg/models"
)

// Decider is the capability every negotiating party exposes to the
// scheduler. Snapshot must be called with the scheduler's session lock
// held; the returned View is immutable, so Decide can then run
// unlocked and concurrently with other sessions.
type Decider interface {
	ID() string
	Role() string
	Snapshot(n *negotiation.Negotiation) View
	Decide(ctx context.Context, v View) (string, error)
}

// View is a self-contained snapshot of one session as a party sees it:
// everything Decide needs, copied out of the live session and sibling
// state. It never aliases mutable session data.
type View struct {
	SessionID   string
	RoundsLeft  int
	Constraints string
	History     string
	MultiItem   bool
	Siblings    []prompt.SiblingLine
}

// base carries what both roles share: identity, provider binding, the
// urgency and weight parameters used downstream by scoring, and the
// sessions this agent participates in. One agent instance is shared
// across all its sessions.
type base struct {
	id          string
	provider    provider.Provider
	urgency     float64
	termWeights map[string]float64
	sessions    map[string]*negotiation.Negotiation
	renderer    *prompt.Renderer
}

func (b *base) ID() string { return b.id }

// TermWeights returns the per-dimension importance used by scoring.
func (b *base) TermWeights() map[string]float64 { return b.termWeights }

// Join registers a session this agent is party to.
func (b *base) Join(n *negotiation.Negotiation) {
	b.sessions[n.ID] = n
}

// Sessions returns the joined sessions sorted by id.
func (b *base) Sessions() []*negotiation.Negotiation {
	out := make([]*negotiation.Negotiation, 0, len(b.sessions))
	for _, n := range b.sessions {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// siblings snapshots the other sessions that share sellerID, so a
// party can factor competing offers into its next move.
func (b *base) siblings(current *negotiation.Negotiation, sellerID string) []prompt.SiblingLine {
	var lines []prompt.SiblingLine
	for _, n := range b.Sessions() {
		if n.ID == current.ID || n.SellerID != sellerID {
			continue
		}
		lines = append(lines, prompt.SiblingLine{
			CounterpartyID: n.BuyerID,
			Status:         n.Status,
			LastMessage:    n.LastMessage(),
		})
	}
	return lines
}

// snapshot copies the session state a decision depends on. Constraint
// envelopes are immutable after setup; turns and sibling statuses are
// not, which is why they are rendered to strings here rather than
// read later inside Decide.
func (b *base) snapshot(n *negotiation.Negotiation, siblings []prompt.SiblingLine) View {
	return View{
		SessionID:   n.ID,
		RoundsLeft:  n.RoundsLeft(),
		Constraints: renderConstraints(n),
		History:     n.RenderHistory(),
		MultiItem:   n.IsMultiItem(),
		Siblings:    siblings,
	}
}

func (b *base) decide(ctx context.Context, role string, v View) (string, error) {
	pctx := prompt.Context{
		AgentID:             b.id,
		Role:                role,
		RoundsLeft:          v.RoundsLeft,
		Urgency:             b.urgency,
		Constraints:         v.Constraints,
		Weights:             b.termWeights,
		ConversationHistory: v.History,
		Siblings:            v.Siblings,
		MultiItem:           v.MultiItem,
	}
	rendered, err := b.renderer.Render(role, pctx)
	if err != nil {
		return "", err
	}
	return b.provider.Run(ctx, rendered)
}

// Seller negotiates toward the high end of its envelope.
type Seller struct {
	base
}

// Buyer negotiates toward the low end of its envelope.
type Buyer struct {
	base
}

// Params configures a new agent.
type Params struct {
	ID          string
	Provider    provider.Provider
	Urgency     float64
	TermWeights map[string]float64
	Renderer    *prompt.Renderer
}

// NewSeller builds a seller agent.
func NewSeller(p Params) *Seller {
	return &Seller{base: newBase(p)}
}

// NewBuyer builds a buyer agent.
func NewBuyer(p Params) *Buyer {
	return &Buyer{base: newBase(p)}
}

func newBase(p Params) base {
	return base{
		id:          p.ID,
		provider:    p.Provider,
		urgency:     p.Urgency,
		termWeights: p.TermWeights,
		sessions:    make(map[string]*negotiation.Negotiation),
		renderer:    p.Renderer,
	}
}

func (s *Seller) Role() string { return models.RoleSeller }

// Snapshot captures the seller's view of a session. Sibling lines cover
// every other session this seller is running, whoever the buyer.
func (s *Seller) Snapshot(n *negotiation.Negotiation) View {
	return s.snapshot(n, s.siblings(n, s.id))
}

// Decide produces the seller's next message from a snapshot.
func (s *Seller) Decide(ctx context.Context, v View) (string, error) {
	return s.decide(ctx, models.RoleSeller, v)
}

func (b *Buyer) Role() string { return models.RoleBuyer }

// Snapshot captures the buyer's view of a session. Sibling lines cover
// the buyer's other sessions with this same seller: the competition it
// can actually observe.
func (b *Buyer) Snapshot(n *negotiation.Negotiation) View {
	return b.snapshot(n, b.siblings(n, n.SellerID))
}

// Decide produces the buyer's next message from a snapshot.
func (b *Buyer) Decide(ctx context.Context, v View) (string, error) {
	return b.decide(ctx, models.RoleBuyer, v)
}

// renderConstraints formats a session's constraint envelope for the
// prompt. Never includes the counterparty's envelope; each agent's
// terms come from its own config.
func renderConstraints(n *negotiation.Negotiation) string {
	if !n.IsMultiItem() {
		return renderItem(n.Terms)
	}
	mt := n.MultiTerms
	var b strings.Builder
	for _, req := range mt.Requests {
		it, err := mt.ItemTermsFor(req.ItemID)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%d x %s:\n%s\n", req.Quantity, req.ItemID, renderItem(it))
	}
	tp := mt.TotalPriceRange()
	fmt.Fprintf(&b, "total price: %v-%v\n", tp.Minimum, tp.Maximum)
	if mt.GlobalDeliveryDays != nil {
		fmt.Fprintf(&b, "deal-wide delivery_days: %v-%v\n", mt.GlobalDeliveryDays.Minimum, mt.GlobalDeliveryDays.Maximum)
	}
	if mt.GlobalUpfrontPct != nil {
		fmt.Fprintf(&b, "deal-wide upfront_pct: %v-%v\n", mt.GlobalUpfrontPct.Minimum, mt.GlobalUpfrontPct.Maximum)
	}
	if len(mt.BulkDiscountTiers) > 0 {
		tiers := make([]int, 0, len(mt.BulkDiscountTiers))
		for q := range mt.BulkDiscountTiers {
			tiers = append(tiers, q)
		}
		sort.Ints(tiers)
		b.WriteString("bulk discounts:")
		for _, q := range tiers {
			fmt.Fprintf(&b, " %d+ units -> %v%%", q, mt.BulkDiscountTiers[q])
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderItem(t terms.ItemTerms) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  price: %v-%v", t.Price.Minimum, t.Price.Maximum)
	if t.Price.Reference != 0 {
		fmt.Fprintf(&b, " (target %v)", t.Price.Reference)
	}
	fmt.Fprintf(&b, "\n  delivery_days: %v-%v", t.DeliveryDays.Minimum, t.DeliveryDays.Maximum)
	fmt.Fprintf(&b, "\n  upfront_pct: %v-%v", t.UpfrontPct.Minimum, t.UpfrontPct.Maximum)
	return b.String()
}
