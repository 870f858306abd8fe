// Package provider abstracts the decision backends that produce each
// party's next negotiation message. The core treats a provider as a
// synchronous function of the rendered prompt: it returns text or
// fails, and a failure is recovered per session, never fatal to a run.
package provider

import "context"

// Provider produces the next message for a rendered prompt.
type Provider interface {
	Name() string
	Run(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Name() string { return "func" }

func (f Func) Run(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
