package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Subprocess runs a local command per decision: prompt on stdin, reply
// on stdout. Useful for wiring arbitrary local models or scripted
// counterparties without a server.
type Subprocess struct {
	Command string
	Args    []string
	Timeout time.Duration // 0 = context only
}

func (p Subprocess) Name() string { return "subprocess" }

func (p Subprocess) Run(ctx context.Context, prompt string) (string, error) {
	if p.Command == "" {
		return "", errors.New("subprocess provider: command is required")
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Stdin = strings.NewReader(prompt)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("subprocess provider: %w: %s", err, msg)
		}
		return "", fmt.Errorf("subprocess provider: %w", err)
	}
	reply := strings.TrimSpace(out.String())
	if reply == "" {
		return "", errors.New("subprocess provider: empty reply")
	}
	return reply, nil
}
