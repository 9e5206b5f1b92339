package factory

import (
	"context"
	"fmt"
	"time"

	"portfolio-agent-be/pkg/llm"
	"portfolio-agent-be/pkg/llm/gemini"
	"portfolio-agent-be/pkg/llm/mock"
	"portfolio-agent-be/pkg/llm/ollama"
	"portfolio-agent-be/pkg/llm/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration // per HTTP request
}

func NewLLMProvider(ctx context.Context, cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case ProviderGemini:
		p, err := gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderOllama:
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case ProviderMock:
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// DefaultModel is used when neither LLM_MODEL nor OPENAI_MODEL is set.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return gemini.DefaultModel
	case ProviderOllama:
		return "llama3"
	case ProviderMock:
		return "mock"
	default:
		return "gpt-4o-mini"
	}
}
