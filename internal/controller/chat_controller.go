package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio-agent-be/internal/constant"
	"portfolio-agent-be/internal/dto"
	"portfolio-agent-be/internal/pkg/logger"
	"portfolio-agent-be/internal/pkg/serverutils"
	"portfolio-agent-be/internal/service"
	"portfolio-agent-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

const chatModule = "CHAT"

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
}

type ChatControllerConfig struct {
	Model         string
	CommitSha     string
	DeploymentUrl string
}

type chatController struct {
	chatService  service.IChatService
	usageService service.IUsageService
	limiter      ratelimit.Limiter
	cfg          ChatControllerConfig
	logger       logger.ILogger
	now          func() time.Time
}

func NewChatController(
	chatService service.IChatService,
	usageService service.IUsageService,
	limiter ratelimit.Limiter,
	cfg ChatControllerConfig,
	logger logger.ILogger,
) IChatController {
	return &chatController{
		chatService:  chatService,
		usageService: usageService,
		limiter:      limiter,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	// Every method reaches the handler so non-POST gets the JSON 405.
	r.All("/chat", c.Chat)
}

// chatOutcome accumulates what the usage event reports.
type chatOutcome struct {
	startedAt time.Time
	requestID string
	clientKey string
	input     *dto.ChatInput
	model     string
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	out := &chatOutcome{
		startedAt: c.now(),
		requestID: serverutils.RequestID(ctx),
	}
	// The recover middleware answers the request; the usage trail still
	// needs its event.
	defer func() {
		if r := recover(); r != nil {
			c.record(ctx, out, fiber.StatusInternalServerError, "server_error")
			panic(r)
		}
	}()

	if ctx.Method() != fiber.MethodPost {
		return c.fail(ctx, out, fiber.StatusMethodNotAllowed, "method_not_allowed", constant.ErrMsgMethodNotAllowed)
	}

	if err := c.chatService.CheckReady(); err != nil {
		message := constant.ErrMsgServerError
		var credErr *service.CredentialError
		if errors.As(err, &credErr) {
			message = fmt.Sprintf(constant.ErrMsgMissingKeyFormat, credErr.EnvName)
		}
		c.logger.Error(chatModule, "Chat backend not configured", map[string]interface{}{
			"request_id": out.requestID,
			"error":      err.Error(),
		})
		return c.fail(ctx, out, fiber.StatusInternalServerError, "missing_credential", message)
	}

	out.clientKey = serverutils.ClientKey(ctx)
	allowed, err := c.limiter.Allow(ctx.UserContext(), out.clientKey)
	if err != nil {
		c.logger.Warn(chatModule, "Rate limiter unavailable, admitting request", map[string]interface{}{
			"request_id": out.requestID,
			"client_key": out.clientKey,
			"error":      err.Error(),
		})
		allowed = true
	}
	if !allowed {
		return c.fail(ctx, out, fiber.StatusTooManyRequests, "rate_limited", constant.ErrMsgRateLimited)
	}

	var req dto.ChatRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		c.logger.Warn(chatModule, "Bad JSON body", map[string]interface{}{
			"request_id": out.requestID,
			"error":      err.Error(),
		})
		return c.fail(ctx, out, fiber.StatusBadRequest, "invalid_json", constant.ErrMsgInvalidJSON, jsonErrorDetails(err))
	}

	input, err := c.chatService.PrepareInput(&req)
	out.input = input
	if err != nil {
		return c.fail(ctx, out, fiber.StatusBadRequest, "invalid_input", constant.ErrMsgInvalidRequest, err.Error())
	}

	c.logger.Info(chatModule, "Chat request started", map[string]interface{}{
		"request_id":          out.requestID,
		"client_key":          out.clientKey,
		"mode":                input.Mode.String(),
		"has_job_description": input.JobDescription != "",
		"messages":            len(input.Window),
		"model":               c.cfg.Model,
		"commit_sha":          c.cfg.CommitSha,
	})

	out.model = c.cfg.Model
	res, err := c.chatService.SendChat(ctx.UserContext(), input)
	if err != nil {
		return c.handleChatError(ctx, out, err)
	}

	durationMs := c.now().Sub(out.startedAt).Milliseconds()
	c.logger.Info(chatModule, "Chat request completed", map[string]interface{}{
		"request_id":  out.requestID,
		"duration_ms": durationMs,
	})
	c.record(ctx, out, fiber.StatusOK, "ok")

	return ctx.Status(fiber.StatusOK).JSON(dto.ChatResponse{
		Reply:     res.Reply,
		RequestID: out.requestID,
		Meta: dto.ChatMeta{
			DurationMs:    durationMs,
			Model:         res.Model,
			CommitSha:     c.cfg.CommitSha,
			DeploymentUrl: c.cfg.DeploymentUrl,
		},
	})
}

func (c *chatController) handleChatError(ctx *fiber.Ctx, out *chatOutcome, err error) error {
	details := map[string]interface{}{
		"request_id": out.requestID,
		"model":      c.cfg.Model,
		"error":      err.Error(),
	}

	switch {
	case errors.Is(err, service.ErrEmptyReply):
		c.logger.Error(chatModule, "Empty reply from upstream", details)
		return c.fail(ctx, out, fiber.StatusInternalServerError, "empty_reply", constant.ErrMsgEmptyReply)
	case errors.Is(err, service.ErrUpstreamTimeout):
		c.logger.Error(chatModule, "Upstream timed out", details)
		return c.fail(ctx, out, fiber.StatusGatewayTimeout, "upstream_timeout", constant.ErrMsgUpstreamTimeout)
	case errors.Is(err, service.ErrUpstream):
		c.logger.Error(chatModule, "Upstream request failed", details)
		return c.fail(ctx, out, fiber.StatusInternalServerError, "upstream_error", constant.ErrMsgUpstreamFailed, err.Error())
	default:
		c.logger.Error(chatModule, "Server error", details)
		return c.fail(ctx, out, fiber.StatusInternalServerError, "server_error", constant.ErrMsgServerError, err.Error())
	}
}

func (c *chatController) fail(ctx *fiber.Ctx, out *chatOutcome, status int, outcome, message string, details ...string) error {
	c.record(ctx, out, status, outcome)
	return serverutils.SendError(ctx, status, message, details...)
}

func (c *chatController) record(ctx *fiber.Ctx, out *chatOutcome, status int, outcome string) {
	event := dto.ChatCompletedEvent{
		RequestID:  out.requestID,
		ClientKey:  out.clientKey,
		Status:     status,
		Outcome:    outcome,
		Model:      out.model,
		DurationMs: c.now().Sub(out.startedAt).Milliseconds(),
		OccurredAt: c.now().UTC(),
	}
	if out.input != nil {
		event.Mode = out.input.Mode.String()
		event.Messages = len(out.input.Window)
		event.HasJobDescription = out.input.JobDescription != ""
	}
	c.usageService.Record(ctx.UserContext(), event)
}

// jsonErrorDetails keeps decode errors short and free of body content.
func jsonErrorDetails(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("expected a JSON object, got %s", typeErr.Value)
	default:
		return "body is not valid JSON"
	}
}
