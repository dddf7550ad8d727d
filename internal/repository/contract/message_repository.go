package contract

import (
	"context"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindLastAssistantMessage returns the most recent assistant turn in
	// the conversation, or nil when there is none.
	FindLastAssistantMessage(ctx context.Context, conversationId uuid.UUID) (*entity.Message, error)
}
