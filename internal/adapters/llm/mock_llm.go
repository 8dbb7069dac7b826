package llm

import (
	"context"
	"sync"

	"mentor/internal/domain"
)

// MockResponse is one scripted reply for MockLLM.
type MockResponse struct {
	Result *domain.GenerateResult
	Err    error
}

// MockLLM is a scriptable domain.LLMClient for tests and local development.
// Queued responses are consumed in order; once the queue is empty every call
// returns a canned text reply.
type MockLLM struct {
	mu    sync.Mutex
	queue []MockResponse

	// Recorded calls, in order.
	Requests     []domain.GenerateRequest
	TextPrompts  []string
	TextResponse string
	TextErr      error
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Enqueue scripts the next GenerateContent responses.
func (m *MockLLM) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

func (m *MockLLM) GenerateContent(_ context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next.Result, next.Err
	}
	return &domain.GenerateResult{Text: "Respuesta simulada del mentor."}, nil
}

func (m *MockLLM) GenerateText(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TextPrompts = append(m.TextPrompts, prompt)
	if m.TextErr != nil {
		return "", m.TextErr
	}
	if m.TextResponse != "" {
		return m.TextResponse, nil
	}
	return "Dialect pack simulado.", nil
}
