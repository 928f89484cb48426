package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCompleterPolishReturnsResponseVerbatim(t *testing.T) {
	t.Parallel()

	server := newCompletionServer(t, "আমি বলছি।")
	defer server.Close()

	c := NewCompleter(Config{APIKey: "test", BaseURL: server.URL + "/v1"})
	out, err := c.Polish(context.Background(), "ami balchi")
	if err != nil {
		t.Fatalf("polish failed: %v", err)
	}
	if out != "আমি বলছি।" {
		t.Fatalf("unexpected output: %q", out)
	}

	body := server.lastBody()
	if !strings.Contains(body, "ami balchi") {
		t.Fatalf("prompt must embed the input verbatim: %s", body)
	}
	if !strings.Contains(body, "Return only the corrected text") {
		t.Fatalf("expected polish instruction in prompt: %s", body)
	}
}

func TestCompleterTranslateUsesTranslationInstruction(t *testing.T) {
	t.Parallel()

	server := newCompletionServer(t, "I am speaking.")
	defer server.Close()

	c := NewCompleter(Config{APIKey: "test", BaseURL: server.URL + "/v1"})
	out, err := c.Translate(context.Background(), "আমি বলছি")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if out != "I am speaking." {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(server.lastBody(), "Return only the translation") {
		t.Fatalf("expected translate instruction in prompt")
	}
}

func TestCompleterBlankInputShortCircuits(t *testing.T) {
	t.Parallel()

	server := newCompletionServer(t, "unused")
	defer server.Close()

	c := NewCompleter(Config{APIKey: "test", BaseURL: server.URL + "/v1"})

	if out, err := c.Polish(context.Background(), ""); err != nil || out != "" {
		t.Fatalf("expected empty result, got %q, %v", out, err)
	}
	if out, err := c.Translate(context.Background(), "   "); err != nil || out != "" {
		t.Fatalf("expected empty result, got %q, %v", out, err)
	}
	if server.requests() != 0 {
		t.Fatalf("blank input must not hit the endpoint, saw %d requests", server.requests())
	}
}

func TestCompleterEmptyResponseYieldsFallback(t *testing.T) {
	t.Parallel()

	server := newCompletionServer(t, "")
	defer server.Close()

	c := NewCompleter(Config{APIKey: "test", BaseURL: server.URL + "/v1"})

	out, err := c.Polish(context.Background(), "kichu")
	if err != nil {
		t.Fatalf("polish failed: %v", err)
	}
	if out != polishFallback {
		t.Fatalf("expected polish fallback, got %q", out)
	}

	out, err = c.Translate(context.Background(), "kichu")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if out != translateFallback {
		t.Fatalf("expected translate fallback, got %q", out)
	}
}

func TestCompleterTransportFailureReturnsTypedError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewCompleter(Config{APIKey: "test", BaseURL: server.URL + "/v1"})

	if _, err := c.Polish(context.Background(), "kichu"); !errors.Is(err, ErrEnhancementFailed) {
		t.Fatalf("expected ErrEnhancementFailed, got %v", err)
	}
	if _, err := c.Translate(context.Background(), "kichu"); !errors.Is(err, ErrTranslationFailed) {
		t.Fatalf("expected ErrTranslationFailed, got %v", err)
	}
}

type completionServer struct {
	*httptest.Server

	mu    sync.Mutex
	count int
	body  string
}

func newCompletionServer(t *testing.T, content string) *completionServer {
	t.Helper()

	s := &completionServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.count++
		s.body = string(payload)
		s.mu.Unlock()

		response := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	return s
}

func (s *completionServer) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *completionServer) lastBody() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}
