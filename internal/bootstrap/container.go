package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-agent-be/internal/config"
	"portfolio-agent-be/internal/constant"
	"portfolio-agent-be/internal/controller"
	"portfolio-agent-be/internal/pkg/logger"
	"portfolio-agent-be/internal/service"
	"portfolio-agent-be/pkg/llm"
	"portfolio-agent-be/pkg/llm/factory"
	"portfolio-agent-be/pkg/portfolio"
	"portfolio-agent-be/pkg/prompt"
	"portfolio-agent-be/pkg/ratelimit"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const bootModule = "BOOT"

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	HealthController controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	SysLogger logger.ILogger

	pubSub      *gochannel.GoChannel
	redis       *redis.Client
	usageLogger logger.ILogger
}

type options struct {
	llmProvider llm.LLMProvider
	limiter     ratelimit.Limiter
	usageLogger logger.ILogger
}

type Option func(*options)

// WithLLMProvider replaces the configured provider. The retry wrapper is
// still applied.
func WithLLMProvider(p llm.LLMProvider) Option {
	return func(o *options) { o.llmProvider = p }
}

func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

func WithUsageLogger(l logger.ILogger) Option {
	return func(o *options) { o.usageLogger = l }
}

func NewContainer(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{SysLogger: sysLogger}

	// 1. Event Bus
	c.pubSub = gochannel.NewGoChannel(
		gochannel.Config{},
		logger.NewWatermillAdapter(sysLogger),
	)

	c.usageLogger = o.usageLogger
	if c.usageLogger == nil {
		c.usageLogger = logger.NewIsolatedLogger(cfg.App.UsageLogFilePath)
	}

	// 2. Model Provider
	model := cfg.Model()
	llmProvider := o.llmProvider
	if llmProvider == nil {
		baseURL := cfg.Ai.OpenAIBaseURL
		if cfg.Ai.LLMProvider == config.ProviderOllama {
			baseURL = cfg.Ai.OllamaBaseURL
		}
		apiKey := cfg.Keys.OpenAI
		if cfg.Ai.LLMProvider == config.ProviderGemini {
			apiKey = cfg.Keys.GoogleGemini
		}

		var err error
		llmProvider, err = factory.NewLLMProvider(ctx, factory.ProviderConfig{
			Provider: cfg.Ai.LLMProvider,
			Model:    model,
			APIKey:   apiKey,
			BaseURL:  baseURL,
			Timeout:  cfg.Ai.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init llm provider: %w", err)
		}
	}
	sysLogger.Info(bootModule, "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    model,
	})

	policy := llm.DefaultRetryPolicy()
	policy.Timeout = cfg.Ai.Timeout
	policy.MaxRetries = uint(cfg.Ai.MaxRetries)
	llmProvider = llm.WithRetry(llmProvider, policy, func(err error, wait time.Duration) {
		sysLogger.Warn("LLM", "Retrying model call", map[string]interface{}{
			"error":   err.Error(),
			"wait_ms": wait.Milliseconds(),
		})
	})

	// 3. Rate Limiter
	limiter := o.limiter
	if limiter == nil {
		limiter = c.newLimiter(ctx, cfg)
	}

	// 4. Services
	loader := portfolio.NewLoader(portfolio.Options{
		BaseDir:  cfg.Portfolio.DataDir,
		CacheTTL: cfg.Portfolio.CacheTTL,
	}, sysLogger)

	assembler := prompt.NewAssembler(prompt.Persona{
		AgentName:   cfg.Persona.AgentName,
		SubjectName: cfg.Persona.SubjectName,
		Pronouns:    cfg.Persona.Pronouns,
	})

	missing := ""
	if name, ok := cfg.Credential(); !ok {
		missing = name
		sysLogger.Warn(bootModule, "Model credential missing, chat requests will fail", map[string]interface{}{
			"env": name,
		})
	}

	chatService := service.NewChatService(llmProvider, loader, assembler, service.ChatServiceConfig{
		Model:             model,
		MissingCredential: missing,
	}, sysLogger)

	publisherService := service.NewPublisherService(c.pubSub, constant.ChatCompletedTopic)
	usageService := service.NewUsageService(publisherService, sysLogger)
	c.ConsumerService = service.NewUsageConsumer(c.pubSub, constant.ChatCompletedTopic, c.usageLogger, sysLogger)

	// 5. Controllers
	c.ChatController = controller.NewChatController(chatService, usageService, limiter, controller.ChatControllerConfig{
		Model:         model,
		CommitSha:     cfg.Build.CommitSha,
		DeploymentUrl: cfg.Build.DeploymentUrl,
	}, sysLogger)
	c.HealthController = controller.NewHealthController(cfg.Ai.LLMProvider, model, cfg.Build.CommitSha)

	return c, nil
}

func (c *Container) newLimiter(ctx context.Context, cfg *config.Config) ratelimit.Limiter {
	if cfg.RateLimit.Backend != config.RateLimitRedis {
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
	}

	opt, err := redis.ParseURL(cfg.RateLimit.RedisURL)
	if err != nil {
		c.SysLogger.Warn(bootModule, "Failed to parse Redis URL, using it as address", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{
			Addr: cfg.RateLimit.RedisURL,
		}
	}
	c.redis = redis.NewClient(opt)
	if err := c.redis.Ping(ctx).Err(); err != nil {
		// Requests fail open while Redis is down.
		c.SysLogger.Warn(bootModule, "Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return ratelimit.NewRedisLimiter(c.redis, cfg.RateLimit.Max, cfg.RateLimit.Window)
}

// Close releases the event bus and the Redis connection.
func (c *Container) Close() error {
	var errs []error
	if c.pubSub != nil {
		errs = append(errs, c.pubSub.Close())
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.usageLogger != nil {
		_ = c.usageLogger.Sync()
	}
	return errors.Join(errs...)
}
