package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// TextResponse is a convenience for a plain-text canned response.
func TextResponse(s string) MockResponse {
	return MockResponse{Content: json.RawMessage(s)}
}

// MockProvider is a deterministic Provider for tests and offline runs.
// It returns canned responses in FIFO order and records all requests. When
// the queue is empty it asks Fallback, if set, and otherwise fails with
// FailureUnavailable.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
	Purposes  []string

	Fallback func(ctx context.Context, req Request) MockResponse
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	m.Purposes = append(m.Purposes, PurposeFrom(ctx))

	var resp MockResponse
	switch {
	case len(m.responses) > 0:
		resp = m.responses[0]
		m.responses = m.responses[1:]
	case m.Fallback != nil:
		resp = m.Fallback(ctx, req)
	default:
		return nil, &Error{Failure: FailureUnavailable}
	}

	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Content:    resp.Content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Pending returns the number of canned responses not yet consumed.
func (m *MockProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses)
}

// offlineResponse accepts every attempt and answers with fixed lines. It
// backs the "mock" provider so the server can run without an API key.
func offlineResponse(ctx context.Context, req Request) MockResponse {
	if req.Schema != nil {
		return MockResponse{Content: json.RawMessage(`{"appropriate":true,"guidance":""}`)}
	}
	switch PurposeFrom(ctx) {
	case PurposeOpening:
		return TextResponse("Hello there! How can I help you today?")
	case PurposeWrapUp:
		return TextResponse("Thank you, that's everything. Have a nice day!")
	case PurposeGuidance:
		return TextResponse("Try answering the question you were asked in a friendly way.")
	case PurposeEvaluate:
		return TextResponse("70|70|70|70|70|Well done, you stayed on topic.|Offline evaluation; scores are placeholders.")
	default:
		return TextResponse("I see. Could you tell me a bit more?")
	}
}
