package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portfolio-agent-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wireRequest struct {
	Contents          []wireContent `json:"contents"`
	SystemInstruction *wireContent  `json:"systemInstruction"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	})
	require.NoError(t, err)
	return &GeminiProvider{client: client, modelName: "gemini-test"}
}

func TestChat_MapsRolesAndConfig(t *testing.T) {
	var got wireRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello there"}]}}]}`))
	})

	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hey"},
		{Role: llm.RoleSystem, Content: "more rules"},
		{Role: llm.RoleUser, Content: "tell me more"},
	}, llm.WithTemperature(0.7), llm.WithMaxTokens(1000))

	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	require.NotNil(t, got.SystemInstruction)
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Equal(t, "rules\n\nmore rules", got.SystemInstruction.Parts[0].Text)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, genai.RoleUser, got.Contents[0].Role)
	assert.Equal(t, "hi", got.Contents[0].Parts[0].Text)
	assert.Equal(t, genai.RoleModel, got.Contents[1].Role)
	assert.Equal(t, "hey", got.Contents[1].Parts[0].Text)
	assert.Equal(t, genai.RoleUser, got.Contents[2].Role)

	assert.InDelta(t, 0.7, got.GenerationConfig.Temperature, 1e-6)
	assert.Equal(t, 1000, got.GenerationConfig.MaxOutputTokens)
}

func TestChat_NoSystemMessageOmitsInstruction(t *testing.T) {
	var got wireRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	})

	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})

	require.NoError(t, err)
	assert.Nil(t, got.SystemInstruction)
}

func TestChat_APIErrorIsStatusError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})

	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "gemini", statusErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "quota exceeded", statusErr.Body)
	assert.True(t, llm.IsRetryable(err))
}

func TestChat_WithoutKeyFails(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), "", "")
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), nil)

	assert.EqualError(t, err, "gemini client not configured")
	assert.Equal(t, DefaultModel, p.modelName)
}
