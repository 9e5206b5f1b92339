package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolio-agent-be/pkg/llm"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiProvider implements llm.LLMProvider on the Gemini Developer API.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// Ensure GeminiProvider implements LLMProvider
var _ llm.LLMProvider = &GeminiProvider{}

// NewGeminiProvider builds the client eagerly. An empty key yields a provider
// that fails every call; the orchestrator rejects such requests before they
// reach the model.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	p := &GeminiProvider{modelName: modelName}
	if apiKey == "" {
		return p, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	p.client = client
	return p, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if g.client == nil {
		return "", errors.New("gemini client not configured")
	}

	opts := llm.ApplyOptions(llm.Options{
		Model:       g.modelName,
		Temperature: 0.7,
	}, options...)

	// System messages fold into SystemInstruction; Gemini has no system role.
	var system []string
	var contents []*genai.Content
	for _, m := range history {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temp := float32(opts.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, opts.Model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &llm.StatusError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	return res.Text(), nil
}
