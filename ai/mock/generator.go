package mock

import (
	"context"
	"sync"

	"github.com/poiesic/classit/ai"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	mu         sync.Mutex
	callCount  int
	lastPrompt string
	lastOpts   ai.GenerateOptions
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator that answers Unknown.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// NewMockGeneratorWithAnswer creates a mock generator with a fixed answer.
func NewMockGeneratorWithAnswer(answer string) *MockGenerator {
	return &MockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return answer, nil
		},
	}
}

// Generate records the prompt and returns the injected or default answer.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = prompt
	m.lastOpts = ai.ApplyGenerateOptions(opts...)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return "SECTOR: Unknown\nINDUSTRY: Unknown\nREASONING: not enough information", nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the most recent prompt.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// LastOptions returns the options of the most recent call.
func (m *MockGenerator) LastOptions() ai.GenerateOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}
