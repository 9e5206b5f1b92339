package service

import (
	"context"
	"encoding/json"

	"portfolio-agent-be/internal/dto"
	"portfolio-agent-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

const usageModule = "USAGE"

// IUsageService records one event per chat request.
type IUsageService interface {
	Record(ctx context.Context, event dto.ChatCompletedEvent)
}

type usageService struct {
	publisher IPublisherService
	logger    logger.ILogger
}

func NewUsageService(publisher IPublisherService, logger logger.ILogger) IUsageService {
	return &usageService{
		publisher: publisher,
		logger:    logger,
	}
}

// Record never fails the request; publish errors are only logged.
func (s *usageService) Record(ctx context.Context, event dto.ChatCompletedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error(usageModule, "Failed to marshal usage event", map[string]interface{}{
			"request_id": event.RequestID,
			"error":      err.Error(),
		})
		return
	}

	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Warn(usageModule, "Failed to publish usage event", map[string]interface{}{
			"request_id": event.RequestID,
			"error":      err.Error(),
		})
	}
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type usageConsumer struct {
	subscriber  message.Subscriber
	topicName   string
	usageLogger logger.ILogger
	logger      logger.ILogger
}

// NewUsageConsumer writes every chat.completed event to usageLogger.
func NewUsageConsumer(subscriber message.Subscriber, topicName string, usageLogger, logger logger.ILogger) IConsumerService {
	return &usageConsumer{
		subscriber:  subscriber,
		topicName:   topicName,
		usageLogger: usageLogger,
		logger:      logger,
	}
}

// Consume subscribes and processes messages in the background until ctx is
// done or the subscriber closes.
func (uc *usageConsumer) Consume(ctx context.Context) error {
	messages, err := uc.subscriber.Subscribe(ctx, uc.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			uc.processMessage(msg)
		}
	}()

	return nil
}

func (uc *usageConsumer) processMessage(msg *message.Message) {
	var event dto.ChatCompletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		uc.logger.Error(usageModule, "Failed to unmarshal usage event", map[string]interface{}{
			"message_uuid": msg.UUID,
			"error":        err.Error(),
		})
		msg.Ack() // a bad payload will not improve on redelivery
		return
	}

	uc.usageLogger.Info(usageModule, "chat completed", map[string]interface{}{
		"request_id":          event.RequestID,
		"client_key":          event.ClientKey,
		"status":              event.Status,
		"outcome":             event.Outcome,
		"mode":                event.Mode,
		"messages":            event.Messages,
		"has_job_description": event.HasJobDescription,
		"model":               event.Model,
		"duration_ms":         event.DurationMs,
		"occurred_at":         event.OccurredAt,
	})
	msg.Ack()
}
