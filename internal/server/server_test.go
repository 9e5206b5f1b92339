package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portfolio-agent-be/internal/bootstrap"
	"portfolio-agent-be/internal/config"
	"portfolio-agent-be/internal/constant"
	"portfolio-agent-be/internal/pkg/logger"
	"portfolio-agent-be/pkg/llm"
	"portfolio-agent-be/pkg/llm/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			CorsAllowedOrigins: "*",
			BodyLimitBytes:     1 << 20,
		},
		Keys: config.APIKeys{OpenAI: "sk-test"},
		Ai: config.AIConfig{
			LLMProvider: config.ProviderOpenAI,
			OpenAIModel: "gpt-4o-mini",
			Timeout:     2 * time.Second,
			MaxRetries:  0,
		},
		RateLimit: config.RateLimitConfig{
			Backend: config.RateLimitMemory,
			Max:     20,
			Window:  time.Minute,
		},
		Portfolio: config.PortfolioConfig{DataDir: t.TempDir()},
		Build:     config.BuildConfig{CommitSha: "abc123", DeploymentUrl: "portfolio.example.app"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...bootstrap.Option) *Server {
	t.Helper()
	opts = append([]bootstrap.Option{bootstrap.WithUsageLogger(logger.NewNopLogger())}, opts...)
	container, err := bootstrap.NewContainer(context.Background(), cfg, logger.NewNopLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	return New(cfg, container)
}

func replying(reply string, err error) bootstrap.Option {
	return bootstrap.WithLLMProvider(mock.NewMockProviderWith(func(context.Context, []llm.Message, llm.Options) (string, error) {
		return reply, err
	}))
}

func chatRequest(method, body string, headers map[string]string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/chat", r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := s.GetApp().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func assertNoStore(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Equal(t, "0", resp.Header.Get("Expires"))
}

func TestChat_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("hi", nil))

	resp, body := do(t, s, chatRequest(http.MethodGet, "", map[string]string{"x-request-id": "req-42"}))

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "Method not allowed. Use POST.", body["error"])
	assert.Equal(t, "req-42", body["requestId"])
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-Id"))
	assertNoStore(t, resp)
}

func TestChat_RequestIDPrecedence(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("hi", nil))

	_, body := do(t, s, chatRequest(http.MethodPut, "", map[string]string{
		"x-vercel-id":  "iad1::abc",
		"x-request-id": "ignored",
	}))
	assert.Equal(t, "iad1::abc", body["requestId"])

	resp, body := do(t, s, chatRequest(http.MethodPut, "", nil))
	generated, _ := body["requestId"].(string)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, resp.Header.Get("X-Request-Id"))
}

func TestChat_MissingCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Keys.OpenAI = ""
	s := newTestServer(t, cfg, replying("hi", nil))

	resp, body := do(t, s, chatRequest(http.MethodPost, `{}`, nil))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Missing OPENAI_API_KEY on the server.", body["error"])
}

func TestChat_InvalidJSON(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("hi", nil))

	for _, raw := range []string{`{"messages": [`, `[1,2]`, `not json`} {
		resp, body := do(t, s, chatRequest(http.MethodPost, raw, nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, raw)
		assert.Equal(t, "Invalid JSON body", body["error"])
		assert.NotEmpty(t, body["details"])
		assertNoStore(t, resp)
	}
}

func TestChat_Success(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("  **Strong fit**\n- Built things  ", nil))

	resp, body := do(t, s, chatRequest(http.MethodPost,
		`{"messages":[{"role":"user","content":"Why hire?"},{"role":"bot","content":"x"}],"mode":"Recruiter","jobDescription":"Go"}`,
		map[string]string{"x-request-id": "req-ok"}))

	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "**Strong fit**\n- Built things", body["reply"])
	assert.Equal(t, "req-ok", body["requestId"])
	assertNoStore(t, resp)

	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", meta["model"])
	assert.Equal(t, "abc123", meta["commitSha"])
	assert.Equal(t, "portfolio.example.app", meta["deploymentUrl"])
	assert.GreaterOrEqual(t, meta["durationMs"], float64(0))
}

func TestChat_EmptyBodyFieldsStillAnswer(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("ok", nil))

	resp, body := do(t, s, chatRequest(http.MethodPost, `{"messages":"nope","mode":7,"jobDescription":{}}`, nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["reply"])
}

func TestChat_RateLimitPerClient(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("ok", nil))
	hdr := map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}

	for i := 0; i < 20; i++ {
		resp, _ := do(t, s, chatRequest(http.MethodPost, `{}`, hdr))
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp, body := do(t, s, chatRequest(http.MethodPost, `{}`, hdr))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Rate limit exceeded. Try again in a minute.", body["error"])

	// Same first hop, different proxy chain.
	resp, _ = do(t, s, chatRequest(http.MethodPost, `{}`, map[string]string{"X-Forwarded-For": "203.0.113.7"}))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = do(t, s, chatRequest(http.MethodPost, `{}`, map[string]string{"X-Forwarded-For": "198.51.100.1"}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChat_RateLimitCountsBadRequests(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Max = 2
	s := newTestServer(t, cfg, replying("ok", nil))

	do(t, s, chatRequest(http.MethodPost, `bad`, nil))
	do(t, s, chatRequest(http.MethodPost, `bad`, nil))
	resp, _ := do(t, s, chatRequest(http.MethodPost, `{}`, nil))

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, fmt.Errorf("redis: connection refused")
}

func TestChat_LimiterFailureFailsOpen(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("ok", nil), bootstrap.WithLimiter(brokenLimiter{}))

	resp, _ := do(t, s, chatRequest(http.MethodPost, `{}`, nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChat_EmptyUpstreamReply(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying(" \n ", nil))

	resp, body := do(t, s, chatRequest(http.MethodPost, `{}`, nil))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Upstream returned empty response", body["error"])
	assert.NotEmpty(t, body["requestId"])
}

func TestChat_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("", &llm.StatusError{Provider: "openai", StatusCode: 401, Body: "invalid key"}))

	resp, body := do(t, s, chatRequest(http.MethodPost, `{}`, nil))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Upstream request failed", body["error"])
	assert.Contains(t, body["details"], "status 401")
}

func TestChat_UpstreamTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ai.Timeout = 50 * time.Millisecond
	s := newTestServer(t, cfg, bootstrap.WithLLMProvider(mock.NewMockProviderWith(
		func(ctx context.Context, _ []llm.Message, _ llm.Options) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})))

	resp, body := do(t, s, chatRequest(http.MethodPost, `{}`, nil))

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "Upstream timed out", body["error"])
}

func TestChat_JobDescriptionTooLong(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("ok", nil))

	payload, err := json.Marshal(map[string]any{"jobDescription": strings.Repeat("é", constant.JobDescriptionMaxRunes+1)})
	require.NoError(t, err)
	resp, body := do(t, s, chatRequest(http.MethodPost, string(payload), nil))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestChat_PanicBecomesServerError(t *testing.T) {
	s := newTestServer(t, testConfig(t), bootstrap.WithLLMProvider(mock.NewMockProviderWith(
		func(context.Context, []llm.Message, llm.Options) (string, error) {
			panic("provider exploded")
		})))

	resp, body := do(t, s, chatRequest(http.MethodPost, `{}`, map[string]string{"x-request-id": "req-panic"}))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server error", body["error"])
	assert.Equal(t, "provider exploded", body["details"])
	assert.Equal(t, "req-panic", body["requestId"])
	assertNoStore(t, resp)
}

func TestChat_UsageEventsRecorded(t *testing.T) {
	core, usageLogs := observer.New(zapcore.InfoLevel)
	cfg := testConfig(t)
	cfg.RateLimit.Max = 1

	container, err := bootstrap.NewContainer(context.Background(), cfg, logger.NewNopLogger(),
		replying("ok", nil), bootstrap.WithUsageLogger(logger.NewFromZap(zap.New(core))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, container.ConsumerService.Consume(ctx))

	s := New(cfg, container)
	do(t, s, chatRequest(http.MethodPost, `{}`, nil))
	do(t, s, chatRequest(http.MethodPost, `{}`, nil))

	require.Eventually(t, func() bool {
		return usageLogs.FilterMessage("chat completed").Len() == 2
	}, 2*time.Second, 10*time.Millisecond)

	statuses := map[int]bool{}
	for _, entry := range usageLogs.FilterMessage("chat completed").All() {
		details := entry.ContextMap()["details"].(map[string]interface{})
		statuses[details["status"].(int)] = true
	}
	assert.Equal(t, map[int]bool{200: true, 429: true}, statuses)
}

func TestChat_PanicStillRecordsUsage(t *testing.T) {
	core, usageLogs := observer.New(zapcore.InfoLevel)
	cfg := testConfig(t)

	container, err := bootstrap.NewContainer(context.Background(), cfg, logger.NewNopLogger(),
		bootstrap.WithLLMProvider(mock.NewMockProviderWith(
			func(context.Context, []llm.Message, llm.Options) (string, error) {
				panic("provider exploded")
			})),
		bootstrap.WithUsageLogger(logger.NewFromZap(zap.New(core))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, container.ConsumerService.Consume(ctx))

	resp, _ := do(t, New(cfg, container), chatRequest(http.MethodPost, `{"mode":"Technical"}`, nil))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	require.Eventually(t, func() bool {
		return usageLogs.FilterMessage("chat completed").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	details := usageLogs.FilterMessage("chat completed").All()[0].ContextMap()["details"].(map[string]interface{})
	assert.Equal(t, 500, details["status"])
	assert.Equal(t, "server_error", details["outcome"])
	assert.Equal(t, "Technical", details["mode"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("ok", nil))

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "openai", body["provider"])
	assert.Equal(t, "gpt-4o-mini", body["model"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, testConfig(t), replying("ok", nil))

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["requestId"])
}
