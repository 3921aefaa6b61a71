package groq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spigell/cv-tailor/internal/ai"
	"go.uber.org/zap"
)

type capturedRequest struct {
	path   string
	auth   string
	params map[string]any
}

func newTestServer(t *testing.T, status int, content string, captured *capturedRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}

		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if err := json.Unmarshal(body, &captured.params); err != nil {
			t.Errorf("decode body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error","code":"bad","param":""}}`))
			return
		}

		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "llama3-8b-8192",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeneratorGenerateContent(t *testing.T) {
	var captured capturedRequest
	server := newTestServer(t, http.StatusOK, "  # Tailored CV  ", &captured)
	defer server.Close()

	g, err := NewGenerator(Config{APIKey: "test-key", BaseURL: server.URL + "/"}, zap.NewNop())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	output, err := g.GenerateContent(context.Background(), "be helpful", "tailor my cv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "# Tailored CV" {
		t.Fatalf("unexpected output: %q", output)
	}

	if captured.path != "/chat/completions" {
		t.Fatalf("unexpected path: %q", captured.path)
	}

	if captured.auth != "Bearer test-key" {
		t.Fatalf("unexpected authorization header: %q", captured.auth)
	}

	if captured.params["model"] != DefaultModel {
		t.Fatalf("expected default model, got %v", captured.params["model"])
	}

	if captured.params["temperature"] != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", captured.params["temperature"])
	}

	if captured.params["max_tokens"] != float64(1024) {
		t.Fatalf("expected max_tokens 1024, got %v", captured.params["max_tokens"])
	}

	messages, ok := captured.params["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %v", captured.params["messages"])
	}

	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be helpful" {
		t.Fatalf("unexpected system message: %v", first)
	}

	second, _ := messages[1].(map[string]any)
	if second["role"] != "user" || second["content"] != "tailor my cv" {
		t.Fatalf("unexpected user message: %v", second)
	}
}

func TestGeneratorEmptyCompletion(t *testing.T) {
	var captured capturedRequest
	server := newTestServer(t, http.StatusOK, "   ", &captured)
	defer server.Close()

	g, err := NewGenerator(Config{APIKey: "k", BaseURL: server.URL + "/", RequestsPerMinute: 600}, zap.NewNop())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	_, err = g.GenerateContent(context.Background(), "", "message")
	if !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}

	messages, _ := captured.params["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected only the user message, got %d", len(messages))
	}
}

func TestGeneratorAPIError(t *testing.T) {
	var captured capturedRequest
	server := newTestServer(t, http.StatusBadRequest, "", &captured)
	defer server.Close()

	g, err := NewGenerator(Config{APIKey: "k", BaseURL: server.URL + "/", Model: "custom"}, zap.NewNop())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	if g.Model() != "custom" {
		t.Fatalf("unexpected model: %q", g.Model())
	}

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for bad request")
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(Config{APIKey: "  "}, zap.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestGeneratorHonoursCancelledContext(t *testing.T) {
	g, err := NewGenerator(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1/", RequestsPerMinute: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.GenerateContent(ctx, "sys", "msg"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
