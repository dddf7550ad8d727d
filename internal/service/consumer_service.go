package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/repository/unitofwork"
	"doc-assistant-be/pkg/events"
	pktNats "doc-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IConsumerService drains the in-process event bus: feedback events are
// persisted, and every event is forwarded to NATS for downstream systems.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher // nil when NATS is not configured
	log            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
	lg logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		log:            lg,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var envelope chatEventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.log.Error("consumer", "malformed event payload", map[string]interface{}{"error": err.Error()})
		msg.Ack() // never retry garbage
		return
	}

	if envelope.Type == events.TypeFeedbackReceived {
		if err := cs.persistFeedback(ctx, envelope); err != nil {
			cs.log.Error("consumer", "failed to persist feedback", map[string]interface{}{"error": err.Error()})
			msg.Nack()
			return
		}
	}

	// Forwarding is best effort: a dead NATS must not block the local bus.
	if cs.eventPublisher != nil {
		evt := events.BaseEvent{Type: envelope.Type, Data: envelope.Data, OccurredAt: envelope.OccurredAt}
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.log.Warn("consumer", "event forward to NATS failed", map[string]interface{}{
				"type":  envelope.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}

func (cs *consumerService) persistFeedback(ctx context.Context, envelope chatEventEnvelope) error {
	userId, err := uuid.Parse(stringField(envelope.Data, "user_id"))
	if err != nil {
		return fmt.Errorf("feedback event missing user_id: %w", err)
	}
	conversationId, err := uuid.Parse(stringField(envelope.Data, "conversation_id"))
	if err != nil {
		return fmt.Errorf("feedback event missing conversation_id: %w", err)
	}

	comment := stringField(envelope.Data, "comment")
	if comment == "" {
		comment = stringField(envelope.Data, "message")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	fb := &entity.FeedbackEntry{
		Id:             uuid.New(),
		UserId:         userId,
		ConversationId: conversationId,
		Sentiment:      stringField(envelope.Data, "sentiment"),
		Comment:        comment,
		CreatedAt:      time.Now(),
	}
	if err := uow.FeedbackRepository().Create(ctx, fb); err != nil {
		return err
	}
	return uow.Commit()
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
