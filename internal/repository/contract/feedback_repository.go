package contract

import (
	"context"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/repository/specification"
)

type FeedbackRepository interface {
	Create(ctx context.Context, fb *entity.FeedbackEntry) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
