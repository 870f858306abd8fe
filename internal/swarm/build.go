package swarm

import (
	"fmt"
	"os"

	"github.com/mfalcon/negotia/internal/agent"
	"github.com/mfalcon/negotia/internal/agent/provider"
	"github.com/mfalcon/negotia/internal/config"
	"github.com/mfalcon/negotia/internal/negotiation"
	"github.com/mfalcon/negotia/internal/prompt"
)

// FromScenario materializes a validated scenario into a ready-to-run
// scheduler: one agent instance per configured party, one session per
// (negotiation, buyer) pair, all parties joined to their sessions.
// Optional collaborators (store, hub, transcripts) are wired by the
// caller afterwards.
func FromScenario(sc *config.Scenario) (*Scheduler, error) {
	renderer, err := prompt.NewRenderer()
	if err != nil {
		return nil, err
	}

	sellers := make(map[string]*agent.Seller, len(sc.Agents.Sellers))
	for id, spec := range sc.Agents.Sellers {
		p, err := buildProvider(spec)
		if err != nil {
			return nil, fmt.Errorf("seller %q: %w", id, err)
		}
		sellers[id] = agent.NewSeller(agent.Params{
			ID: id, Provider: p, Urgency: spec.Urgency,
			TermWeights: spec.TermWeights, Renderer: renderer,
		})
	}
	buyers := make(map[string]*agent.Buyer, len(sc.Agents.Buyers))
	for id, spec := range sc.Agents.Buyers {
		p, err := buildProvider(spec)
		if err != nil {
			return nil, fmt.Errorf("buyer %q: %w", id, err)
		}
		buyers[id] = agent.NewBuyer(agent.Params{
			ID: id, Provider: p, Urgency: spec.Urgency,
			TermWeights: spec.TermWeights, Renderer: renderer,
		})
	}

	var sessions []*negotiation.Negotiation
	for _, ns := range sc.Negotiations {
		for _, buyerID := range ns.Buyers {
			id := fmt.Sprintf("%s_%s", ns.ID, buyerID)
			var n *negotiation.Negotiation
			if ns.Bundle != "" {
				mt, err := sc.MultiTermsFor(ns.Bundle)
				if err != nil {
					return nil, fmt.Errorf("negotiation %q: %w", ns.ID, err)
				}
				n = negotiation.NewMultiItem(id, ns.Seller, buyerID, mt, ns.MaxTurns)
			} else {
				n = negotiation.New(id, ns.Seller, buyerID, ns.Item, sc.Items[ns.Item], ns.MaxTurns)
			}
			sellers[ns.Seller].Join(n)
			buyers[buyerID].Join(n)
			sessions = append(sessions, n)
		}
	}

	return &Scheduler{
		Sellers:  sellers,
		Buyers:   buyers,
		Sessions: sessions,
	}, nil
}

func buildProvider(spec config.AgentSpec) (provider.Provider, error) {
	switch spec.Provider {
	case "stub":
		return provider.NewStub(spec.Replies...), nil
	case "openai":
		return &provider.OpenAI{
			BaseURL: spec.BaseURL,
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   spec.Model,
		}, nil
	case "ollama":
		return &provider.Ollama{BaseURL: spec.BaseURL, Model: spec.Model}, nil
	case "subprocess":
		return provider.Subprocess{Command: spec.Command, Args: spec.Args}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", spec.Provider)
	}
}
