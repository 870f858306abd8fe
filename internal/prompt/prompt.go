// Package prompt renders the negotiation prompts sent to decision
// providers. Templates are embedded so the binary is self-contained;
// a directory of override templates can be supplied per agent.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Context is the data a role template is rendered with. It mirrors the
// session view handed to deciders. UrgencyLevel is derived by Render;
// callers leave it empty.
type Context struct {
	AgentID             string
	Role                string
	RoundsLeft          int
	Urgency             float64
	UrgencyLevel        string
	Constraints         string
	Weights             map[string]float64
	ConversationHistory string
	Siblings            []SiblingLine
	MultiItem           bool
}

// SiblingLine is the one-line status of another session sharing this
// agent, so a seller entertaining several buyers can weigh competing
// offers.
type SiblingLine struct {
	CounterpartyID string
	Status         string
	LastMessage    string
}

// Renderer loads the embedded role templates once and renders them.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Render produces the prompt for one role ("seller" or "buyer").
func (r *Renderer) Render(role string, ctx Context) (string, error) {
	if ctx.UrgencyLevel == "" {
		ctx.UrgencyLevel = UrgencyLevel(ctx.Urgency, ctx.RoundsLeft)
	}
	var b strings.Builder
	if err := r.tmpl.ExecuteTemplate(&b, role+".tmpl", ctx); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", role, err)
	}
	return b.String(), nil
}

// UrgencyLevel buckets a 0-1 urgency and the rounds remaining into the
// qualitative level the templates key tactics on.
func UrgencyLevel(urgency float64, roundsLeft int) string {
	switch {
	case roundsLeft <= 2 || urgency >= 0.8:
		return "critical"
	case roundsLeft <= 5 || urgency >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
