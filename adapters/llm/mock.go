package llm

import (
	"context"
	"sync"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

// MockLLM returns a canned reply and records what it was asked
type MockLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	Requests []entities.ConversationRequest
	Sampling []entities.SamplingConfig
}

// Ensure MockLLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*MockLLM)(nil)

// NewMockLLM creates a responder that always answers reply
func NewMockLLM(reply string) *MockLLM {
	return &MockLLM{reply: reply}
}

// FailWith makes every following call return err
func (m *MockLLM) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Respond implements repositories.LargeLanguageModel
func (m *MockLLM) Respond(ctx context.Context, request entities.ConversationRequest, sampling entities.SamplingConfig) (entities.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, request)
	m.Sampling = append(m.Sampling, sampling)

	if m.err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, m.err)
	}
	return entities.Reply{Text: m.reply, TokenCount: len(m.reply) / 4}, nil
}
