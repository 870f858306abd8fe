// Package config resolves the negotia home directory and loads scenario
// files: the declarative description of items, agents, and the
// negotiations to run between them.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mfalcon/negotia/internal/terms"
	"github.com/mfalcon/negotia/pkg/models"
)

// Scenario is the parsed scenario file. Validation is fatal before any
// session starts: a run never begins against a half-valid scenario.
type Scenario struct {
	Items        map[string]terms.ItemTerms `yaml:"items"`
	Bundles      map[string]Bundle          `yaml:"bundles"`
	Agents       Agents                     `yaml:"agents"`
	Negotiations []NegotiationSpec          `yaml:"negotiations"`
}

// Bundle declares a multi-item deal over a subset of the scenario's
// items. The optional delivery/upfront ranges apply deal-wide.
type Bundle struct {
	Items         []string            `yaml:"items"`
	Requests      []terms.ItemRequest `yaml:"requests"`
	DeliveryDays  *terms.Range        `yaml:"delivery_days"`
	UpfrontPct    *terms.Range        `yaml:"upfront_pct"`
	BulkDiscounts map[int]float64     `yaml:"bulk_discounts"`
}

// Agents groups the scenario's parties by role.
type Agents struct {
	Sellers map[string]AgentSpec `yaml:"sellers"`
	Buyers  map[string]AgentSpec `yaml:"buyers"`
}

// AgentSpec configures one party: which decision provider backs it and
// its negotiation parameters.
type AgentSpec struct {
	Provider    string             `yaml:"provider"`
	Model       string             `yaml:"model"`
	BaseURL     string             `yaml:"base_url"`
	Command     string             `yaml:"command"`
	Args        []string           `yaml:"args"`
	Replies     []string           `yaml:"replies"`
	Urgency     float64            `yaml:"urgency"`
	TermWeights map[string]float64 `yaml:"term_weights"`
}

// NegotiationSpec declares the sessions of one deal: the seller against
// each listed buyer, over exactly one item or bundle.
type NegotiationSpec struct {
	ID       string   `yaml:"id"`
	Seller   string   `yaml:"seller"`
	Buyers   []string `yaml:"buyers"`
	Item     string   `yaml:"item"`
	Bundle   string   `yaml:"bundle"`
	MaxTurns int      `yaml:"max_turns"`
}

var knownProviders = map[string]bool{
	"stub":       true,
	"openai":     true,
	"ollama":     true,
	"subprocess": true,
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks every envelope and every reference. Term weights not
// summing to 1 are legal but logged, since they unbound the scores.
func (sc *Scenario) Validate() error {
	for id, it := range sc.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %q: %w", id, err)
		}
	}
	for id, b := range sc.Bundles {
		mt, err := sc.bundleTerms(b)
		if err != nil {
			return fmt.Errorf("bundle %q: %w", id, err)
		}
		if err := mt.Validate(); err != nil {
			return fmt.Errorf("bundle %q: %w", id, err)
		}
	}
	for id, a := range sc.Agents.Sellers {
		if err := validateAgent(id, a); err != nil {
			return err
		}
	}
	for id, a := range sc.Agents.Buyers {
		if err := validateAgent(id, a); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for i, ns := range sc.Negotiations {
		if ns.ID == "" {
			return fmt.Errorf("negotiation %d: missing id", i)
		}
		if seen[ns.ID] {
			return fmt.Errorf("negotiation %q: duplicate id", ns.ID)
		}
		seen[ns.ID] = true
		if _, ok := sc.Agents.Sellers[ns.Seller]; !ok {
			return fmt.Errorf("negotiation %q: unknown seller %q", ns.ID, ns.Seller)
		}
		if len(ns.Buyers) == 0 {
			return fmt.Errorf("negotiation %q: no buyers", ns.ID)
		}
		for _, b := range ns.Buyers {
			if _, ok := sc.Agents.Buyers[b]; !ok {
				return fmt.Errorf("negotiation %q: unknown buyer %q", ns.ID, b)
			}
		}
		switch {
		case ns.Item != "" && ns.Bundle != "":
			return fmt.Errorf("negotiation %q: item and bundle are mutually exclusive", ns.ID)
		case ns.Item != "":
			if _, ok := sc.Items[ns.Item]; !ok {
				return fmt.Errorf("negotiation %q: unknown item %q", ns.ID, ns.Item)
			}
		case ns.Bundle != "":
			if _, ok := sc.Bundles[ns.Bundle]; !ok {
				return fmt.Errorf("negotiation %q: unknown bundle %q", ns.ID, ns.Bundle)
			}
		default:
			return fmt.Errorf("negotiation %q: one of item or bundle is required", ns.ID)
		}
		if ns.MaxTurns < 0 {
			return fmt.Errorf("negotiation %q: negative max_turns", ns.ID)
		}
	}
	return nil
}

func validateAgent(id string, a AgentSpec) error {
	if !knownProviders[a.Provider] {
		return fmt.Errorf("agent %q: unknown provider %q", id, a.Provider)
	}
	if a.Provider == "subprocess" && a.Command == "" {
		return fmt.Errorf("agent %q: subprocess provider needs a command", id)
	}
	if a.Urgency < 0 || a.Urgency > 1 {
		return fmt.Errorf("agent %q: urgency %v outside [0,1]", id, a.Urgency)
	}
	var sum float64
	for dim, w := range a.TermWeights {
		switch dim {
		case models.TermPrice, models.TermDeliveryDays, models.TermUpfrontPct:
		default:
			return fmt.Errorf("agent %q: unknown term weight %q", id, dim)
		}
		if w < 0 {
			return fmt.Errorf("agent %q: negative weight for %q", id, dim)
		}
		sum += w
	}
	if len(a.TermWeights) > 0 && math.Abs(sum-1) > 1e-9 {
		slog.Warn("term weights do not sum to 1; scores will be unbounded",
			"agent", id, "sum", sum)
	}
	return nil
}

// MultiTermsFor assembles the MultiItemTerms for a named bundle.
func (sc *Scenario) MultiTermsFor(name string) (terms.MultiItemTerms, error) {
	b, ok := sc.Bundles[name]
	if !ok {
		return terms.MultiItemTerms{}, fmt.Errorf("unknown bundle %q", name)
	}
	return sc.bundleTerms(b)
}

// bundleTerms assembles the MultiItemTerms for a bundle from the
// scenario's item catalog.
func (sc *Scenario) bundleTerms(b Bundle) (terms.MultiItemTerms, error) {
	mt := terms.MultiItemTerms{
		Items:              make(map[string]terms.ItemTerms, len(b.Items)),
		Requests:           b.Requests,
		GlobalDeliveryDays: b.DeliveryDays,
		GlobalUpfrontPct:   b.UpfrontPct,
		BulkDiscountTiers:  b.BulkDiscounts,
	}
	for _, id := range b.Items {
		it, ok := sc.Items[id]
		if !ok {
			return mt, fmt.Errorf("references unknown item %q", id)
		}
		mt.Items[id] = it
	}
	return mt, nil
}
