package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStub_replaysScript(t *testing.T) {
	t.Parallel()
	s := NewStub("first", "second")
	ctx := context.Background()
	for i, want := range []string{"first", "second", "second", "second"} {
		got, err := s.Run(ctx, "prompt")
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("run %d = %q, want %q", i, got, want)
		}
	}
}

func TestStub_defaultReply(t *testing.T) {
	t.Parallel()
	s := NewStub()
	got, err := s.Run(context.Background(), "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Fatal("empty default reply")
	}
}

func TestOpenAI_run(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth = %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "negotiate") {
			t.Errorf("unexpected request messages: %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  I can do 1200.  "}},
			},
		})
	}))
	defer srv.Close()

	p := &OpenAI{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o-mini"}
	got, err := p.Run(context.Background(), "please negotiate")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "I can do 1200." {
		t.Fatalf("reply = %q", got)
	}
}

func TestOpenAI_non200(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	p := &OpenAI{BaseURL: srv.URL, APIKey: "k"}
	if _, err := p.Run(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestOpenAI_missingKey(t *testing.T) {
	t.Parallel()
	p := &OpenAI{}
	if _, err := p.Run(context.Background(), "x"); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestOllama_run(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream must be false")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "deal at 900\n"})
	}))
	defer srv.Close()
	p := &Ollama{BaseURL: srv.URL, Model: "llama3"}
	got, err := p.Run(context.Background(), "x")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "deal at 900" {
		t.Fatalf("reply = %q", got)
	}
}

func TestSubprocess_run(t *testing.T) {
	t.Parallel()
	p := Subprocess{Command: "cat"}
	got, err := p.Run(context.Background(), "echo this back")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "echo this back" {
		t.Fatalf("reply = %q", got)
	}
}

func TestSubprocess_failure(t *testing.T) {
	t.Parallel()
	p := Subprocess{Command: "false"}
	if _, err := p.Run(context.Background(), "x"); err == nil {
		t.Fatal("expected error from failing command")
	}
	p = Subprocess{}
	if _, err := p.Run(context.Background(), "x"); err == nil {
		t.Fatal("expected error without command")
	}
}
