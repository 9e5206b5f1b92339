package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"portfolio-agent-be/pkg/llm/factory"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Keys      APIKeys
	Ai        AIConfig
	RateLimit RateLimitConfig
	Portfolio PortfolioConfig
	Persona   PersonaConfig
	Build     BuildConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	UsageLogFilePath   string
	CorsAllowedOrigins string
	BodyLimitBytes     int
}

type APIKeys struct {
	OpenAI       string
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider   string // "openai", "gemini", "ollama", "mock"
	LLMModel      string // overrides the provider default when set
	OpenAIModel   string
	OpenAIBaseURL string
	OllamaBaseURL string
	Timeout       time.Duration
	MaxRetries    int
}

type RateLimitConfig struct {
	Backend  string // "memory" or "redis"
	Max      int
	Window   time.Duration
	RedisURL string
}

type PortfolioConfig struct {
	DataDir  string
	CacheTTL time.Duration
}

type PersonaConfig struct {
	AgentName   string
	SubjectName string
	Pronouns    string
}

type BuildConfig struct {
	CommitSha     string
	DeploymentUrl string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

const (
	ProviderOpenAI = factory.ProviderOpenAI
	ProviderGemini = factory.ProviderGemini
	ProviderOllama = factory.ProviderOllama
	ProviderMock   = factory.ProviderMock

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}
	return FromEnv()
}

// FromEnv reads the process environment without touching .env files.
func FromEnv() *Config {
	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			UsageLogFilePath:   getEnv("USAGE_LOG_FILE_PATH", "logs/usage.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			BodyLimitBytes:     getEnvAsInt("BODY_LIMIT_BYTES", 1<<20),
		},
		Keys: APIKeys{
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			LLMModel:      getEnv("LLM_MODEL", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			MaxRetries:    getEnvAsInt("LLM_MAX_RETRIES", 2),
		},
		RateLimit: RateLimitConfig{
			Backend:  strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitMemory)),
			Max:      getEnvAsInt("RATE_LIMIT_MAX", 20),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Portfolio: PortfolioConfig{
			DataDir:  getEnv("PORTFOLIO_DATA_DIR", ""),
			CacheTTL: getEnvAsDuration("PORTFOLIO_CACHE_TTL", 0),
		},
		Persona: PersonaConfig{
			AgentName:   getEnv("PERSONA_AGENT_NAME", ""),
			SubjectName: getEnv("PERSONA_SUBJECT_NAME", ""),
			Pronouns:    getEnv("PERSONA_PRONOUNS", ""),
		},
		Build: BuildConfig{
			CommitSha:     firstEnv("VERCEL_GIT_COMMIT_SHA", "COMMIT_SHA"),
			DeploymentUrl: firstEnv("VERCEL_URL", "DEPLOYMENT_URL"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "portfolio-agent-be"),
		},
	}
}

// Validate rejects settings the server cannot start with. A missing model
// credential is not fatal; requests report it instead.
func (c *Config) Validate() error {
	switch c.Ai.LLMProvider {
	case ProviderOpenAI, ProviderGemini, ProviderOllama, ProviderMock:
	default:
		return fmt.Errorf("config: unsupported LLM_PROVIDER %q", c.Ai.LLMProvider)
	}

	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("config: unsupported RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}

	if c.RateLimit.Max <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_WINDOW must be positive")
	}
	if c.Ai.Timeout <= 0 {
		return fmt.Errorf("config: LLM_TIMEOUT must be positive")
	}
	if c.Ai.MaxRetries < 0 {
		return fmt.Errorf("config: LLM_MAX_RETRIES must not be negative")
	}
	if c.App.BodyLimitBytes <= 0 {
		return fmt.Errorf("config: BODY_LIMIT_BYTES must be positive")
	}
	return nil
}

// Credential returns the env var the configured provider needs and whether
// it is set. Providers without a credential report ("", true).
func (c *Config) Credential() (string, bool) {
	switch c.Ai.LLMProvider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY", c.Keys.OpenAI != ""
	case ProviderGemini:
		return "GOOGLE_GEMINI_API_KEY", c.Keys.GoogleGemini != ""
	}
	return "", true
}

// Model is the model name reported to clients and sent upstream.
func (c *Config) Model() string {
	if c.Ai.LLMModel != "" {
		return c.Ai.LLMModel
	}
	if c.Ai.LLMProvider == ProviderOpenAI && c.Ai.OpenAIModel != "" {
		return c.Ai.OpenAIModel
	}
	return factory.DefaultModel(c.Ai.LLMProvider)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("45s") or bare milliseconds ("60000").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
