package mock

import (
	"context"
	"fmt"
	"sync"

	"portfolio-agent-be/pkg/llm"
)

// ReplyFunc produces the reply for one call.
type ReplyFunc func(ctx context.Context, history []llm.Message, opts llm.Options) (string, error)

// MockProvider is an offline provider for local development and tests.
// It records every call.
type MockProvider struct {
	mu      sync.Mutex
	reply   ReplyFunc
	calls   [][]llm.Message
	options []llm.Options
}

// Ensure MockProvider implements LLMProvider
var _ llm.LLMProvider = &MockProvider{}

func NewMockProvider() *MockProvider {
	return &MockProvider{reply: defaultReply}
}

// NewMockProviderWith answers with fn instead of the default echo.
func NewMockProviderWith(fn ReplyFunc) *MockProvider {
	return &MockProvider{reply: fn}
}

func (m *MockProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{}, options...)

	m.mu.Lock()
	m.calls = append(m.calls, append([]llm.Message(nil), history...))
	m.options = append(m.options, opts)
	m.mu.Unlock()

	return m.reply(ctx, history, opts)
}

// Calls returns a copy of the recorded histories.
func (m *MockProvider) Calls() [][]llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]llm.Message(nil), m.calls...)
}

// LastOptions returns the options of the most recent call.
func (m *MockProvider) LastOptions() (llm.Options, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return llm.Options{}, false
	}
	return m.options[len(m.options)-1], true
}

func defaultReply(_ context.Context, history []llm.Message, _ llm.Options) (string, error) {
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			last = history[i].Content
			break
		}
	}
	return fmt.Sprintf("**Mock portfolio agent**\n- Received %d message(s).\n- Latest question: %q", len(history), last), nil
}
