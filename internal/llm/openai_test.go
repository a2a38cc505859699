package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func newTestOpenAIProvider(t *testing.T, jsonObjectOnly bool, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(config),
		model:          "gpt-4o-mini",
		jsonObjectOnly: jsonObjectOnly,
	}
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 12, "total_tokens": 52},
	}
}

func TestOpenAIProvider_Text(t *testing.T) {
	var got openai.ChatCompletionRequest
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion("Hi! What would you like to order?", "stop"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:      "You play a cafeteria vendor.",
		Messages:    []Message{{Role: RoleUser, Content: "Open the conversation."}},
		MaxTokens:   128,
		Temperature: 0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hi! What would you like to order?" {
		t.Errorf("content = %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 52 {
		t.Errorf("total tokens = %d, want 52", resp.Usage.TotalTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("system prompt not sent first: %+v", got.Messages)
	}
	if got.ResponseFormat != nil {
		t.Errorf("text request should not set a response format")
	}
}

func TestOpenAIProvider_StructuredJSONObjectMode(t *testing.T) {
	var got map[string]any
	p := newTestOpenAIProvider(t, true, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion(`{"appropriate":true,"guidance":""}`, "stop"))
	})

	resp, err := p.Generate(context.Background(), Request{Schema: judgmentSchema(), MaxTokens: 64})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"appropriate":true,"guidance":""}` {
		t.Errorf("content = %s", resp.Content)
	}
	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", got["response_format"])
	}
}

func TestOpenAIProvider_StructuredTruncated(t *testing.T) {
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion(`{"appropriate":tr`, "length"))
	})

	_, err := p.Generate(context.Background(), Request{Schema: judgmentSchema(), MaxTokens: 4})
	var llmErr *Error
	if !errors.As(err, &llmErr) || llmErr.Failure != FailureTruncated {
		t.Fatalf("expected truncated failure, got %v", err)
	}
	if string(llmErr.Content) != `{"appropriate":tr` {
		t.Errorf("Content = %s", llmErr.Content)
	}
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := p.Generate(context.Background(), Request{})
	if f, ok := FailureOf(err); !ok || f != FailureRateLimited {
		t.Fatalf("expected rate limit failure, got %v", err)
	}
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Generate(context.Background(), Request{})
	if f, ok := FailureOf(err); !ok || f != FailureUnavailable {
		t.Fatalf("expected unavailable failure, got %v", err)
	}
}

func TestOpenAIProvider_BadKey(t *testing.T) {
	p := newTestOpenAIProvider(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})

	_, err := p.Generate(context.Background(), Request{})
	if f, ok := FailureOf(err); !ok || f != FailureAuth {
		t.Fatalf("expected auth failure, got %v", err)
	}
}
