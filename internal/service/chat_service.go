package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolio-agent-be/internal/constant"
	"portfolio-agent-be/internal/dto"
	"portfolio-agent-be/internal/pkg/logger"
	"portfolio-agent-be/pkg/conversation"
	"portfolio-agent-be/pkg/llm"
	"portfolio-agent-be/pkg/portfolio"
	"portfolio-agent-be/pkg/prompt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const chatModule = "CHAT"

var (
	ErrMissingCredential = errors.New("model credential not configured")
	ErrInvalidInput      = errors.New("invalid chat input")
	ErrEmptyReply        = errors.New("upstream returned empty response")
	ErrUpstream          = errors.New("upstream request failed")
	ErrUpstreamTimeout   = errors.New("upstream timed out")
)

// CredentialError names the environment variable that is missing.
type CredentialError struct {
	EnvName string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s is not set", e.EnvName)
}

func (e *CredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// ContextLoader supplies the portfolio documents for one request.
type ContextLoader interface {
	Load(ctx context.Context) (portfolio.Context, error)
}

type IChatService interface {
	CheckReady() error
	PrepareInput(request *dto.ChatRequest) (*dto.ChatInput, error)
	SendChat(ctx context.Context, input *dto.ChatInput) (*dto.ChatResult, error)
}

type ChatServiceConfig struct {
	Model string
	// MissingCredential is the env var name of an unset provider key, or "".
	MissingCredential string
}

type chatService struct {
	llmProvider llm.LLMProvider
	loader      ContextLoader
	assembler   *prompt.Assembler
	validate    *validator.Validate
	cfg         ChatServiceConfig
	logger      logger.ILogger
}

func NewChatService(
	llmProvider llm.LLMProvider,
	loader ContextLoader,
	assembler *prompt.Assembler,
	cfg ChatServiceConfig,
	logger logger.ILogger,
) IChatService {
	return &chatService{
		llmProvider: llmProvider,
		loader:      loader,
		assembler:   assembler,
		validate:    newValidator(),
		cfg:         cfg,
		logger:      logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterAlias("job_description", fmt.Sprintf("max=%d", constant.JobDescriptionMaxRunes))
	return v
}

func (s *chatService) CheckReady() error {
	if s.cfg.MissingCredential != "" {
		return &CredentialError{EnvName: s.cfg.MissingCredential}
	}
	return nil
}

// PrepareInput normalizes the raw body. Malformed messages and modes are
// dropped rather than rejected; only an oversized job description fails.
func (s *chatService) PrepareInput(request *dto.ChatRequest) (*dto.ChatInput, error) {
	input := &dto.ChatInput{
		Window: conversation.Normalize(request.Messages),
		Mode:   prompt.ParseMode(request.Mode),
	}
	if jd, ok := request.JobDescription.(string); ok {
		input.JobDescription = strings.TrimSpace(jd)
	}

	if err := s.validate.Struct(input); err != nil {
		return input, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return input, nil
}

func (s *chatService) SendChat(ctx context.Context, input *dto.ChatInput) (*dto.ChatResult, error) {
	ctx, span := otel.Tracer("portfolio-agent-be/service").Start(ctx, "ChatService.SendChat",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	span.SetAttributes(
		attribute.String("chat.mode", input.Mode.String()),
		attribute.Int("chat.messages", len(input.Window)),
		attribute.Bool("chat.has_job_description", input.JobDescription != ""),
		attribute.String("llm.model", s.cfg.Model),
	)

	pc, err := s.loader.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context load aborted")
		return nil, err
	}

	messages := s.assembler.Assemble(pc, input.Mode, input.JobDescription, input.Window)

	reply, err := s.llmProvider.Chat(ctx, messages,
		llm.WithTemperature(constant.ChatTemperature),
		llm.WithMaxTokens(constant.ChatMaxTokens),
		llm.WithModel(s.cfg.Model),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		if errors.Is(err, llm.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		span.SetStatus(codes.Error, "empty reply")
		s.logger.Error(chatModule, "Model returned an empty reply", map[string]interface{}{
			"model":    s.cfg.Model,
			"messages": len(messages),
		})
		return nil, ErrEmptyReply
	}

	return &dto.ChatResult{
		Reply: reply,
		Model: s.cfg.Model,
	}, nil
}
