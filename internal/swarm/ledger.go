// Package swarm drives every open session in round-robin passes until
// all conclude, enforcing cross-session exclusivity: a party that
// closes an agreement anywhere exits all of its other sessions.
package swarm

import "sync"

// Ledger is the single piece of cross-session shared state: which
// sellers have sold and which buyers have bought during this run. All
// agreement registration funnels through Commit, so two sessions can
// never close conflicting agreements for the same party.
type Ledger struct {
	mu     sync.Mutex
	sold   map[string]struct{}
	bought map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		sold:   make(map[string]struct{}),
		bought: make(map[string]struct{}),
	}
}

// Committed reports whether either party has already closed a deal
// elsewhere in this run.
func (l *Ledger) Committed(sellerID, buyerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sold[sellerID]; ok {
		return true
	}
	_, ok := l.bought[buyerID]
	return ok
}

// Commit records both parties as committed. Returns false without
// recording anything when either party already committed elsewhere:
// first writer wins, atomically for the pair.
func (l *Ledger) Commit(sellerID, buyerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sold[sellerID]; ok {
		return false
	}
	if _, ok := l.bought[buyerID]; ok {
		return false
	}
	l.sold[sellerID] = struct{}{}
	l.bought[buyerID] = struct{}{}
	return true
}
