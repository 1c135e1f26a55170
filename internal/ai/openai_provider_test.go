package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func makeTestServer(t *testing.T, statusCode int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func testOptions() ProviderOptions {
	return ProviderOptions{Model: "gpt-4o-mini", Temperature: 0.1, MaxTokens: 1500}
}

func TestComplete_Success(t *testing.T) {
	srv := makeTestServer(t, http.StatusOK, completion(`[{"job_id":"0"}]`))

	provider := NewOpenAIProvider(srv.URL, "test-key", testOptions(), srv.Client())
	got, err := provider.Complete(context.Background(), "score these")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `[{"job_id":"0"}]` {
		t.Errorf("got %q, want json string", got)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv := makeTestServer(t, http.StatusInternalServerError, map[string]any{
		"error": map[string]string{"message": "server error", "type": "server_error"},
	})

	provider := NewOpenAIProvider(srv.URL, "test-key", testOptions(), srv.Client())
	if _, err := provider.Complete(context.Background(), "score these"); err == nil {
		t.Fatal("expected error on 5xx response")
	}
}

func TestComplete_RateLimited(t *testing.T) {
	srv := makeTestServer(t, http.StatusTooManyRequests, map[string]any{
		"error": map[string]string{"message": "rate limited", "type": "requests"},
	})

	provider := NewOpenAIProvider(srv.URL, "test-key", testOptions(), srv.Client())
	if _, err := provider.Complete(context.Background(), "score these"); err == nil {
		t.Fatal("expected error on 429 response")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := makeTestServer(t, http.StatusOK, openai.ChatCompletionResponse{})

	provider := NewOpenAIProvider(srv.URL, "test-key", testOptions(), srv.Client())
	if _, err := provider.Complete(context.Background(), "score these"); err == nil {
		t.Fatal("expected error when LLM returns no choices")
	}
}

func TestComplete_SetsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("ok"))
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(srv.URL, "my-secret-key", testOptions(), srv.Client())
	_, _ = provider.Complete(context.Background(), "hello")

	if gotAuth != "Bearer my-secret-key" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer my-secret-key")
	}
}

func TestComplete_SendsFixedSamplingSettings(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("[]"))
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(srv.URL, "key", testOptions(), srv.Client())
	_, _ = provider.Complete(context.Background(), "score these")

	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", gotReq.Temperature)
	}
	if gotReq.MaxTokens != 1500 {
		t.Errorf("max_tokens = %d, want 1500", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "score these" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestUnavailableProvider(t *testing.T) {
	if _, err := (UnavailableProvider{}).Complete(context.Background(), "x"); err == nil {
		t.Fatal("expected ErrNoCredential")
	}
}
