package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Ollama calls a local Ollama server's /api/generate endpoint.
type Ollama struct {
	BaseURL string // default http://localhost:11434
	Model   string // default llama3
	Client  *http.Client
}

func (p *Ollama) Name() string { return "ollama" }

func (p *Ollama) Run(ctx context.Context, prompt string) (string, error) {
	model := p.Model
	if model == "" {
		model = "llama3"
	}
	base := p.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	body, err := json.Marshal(map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", err
	}
	url := strings.TrimSuffix(base, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama provider: API returned %d", resp.StatusCode)
	}
	var apiResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("ollama provider: decode response: %w", err)
	}
	return strings.TrimSpace(apiResp.Response), nil
}

func (p *Ollama) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 300 * time.Second}
}
