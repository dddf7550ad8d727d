package contract

import (
	"context"

	"doc-assistant-be/internal/entity"

	"github.com/google/uuid"
)

type UserMemoryRepository interface {
	Create(ctx context.Context, mem *entity.UserMemory) error
	FindAllByUserId(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.UserMemory, error)
	DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error
}
