package contract

import (
	"context"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindByNameFragment matches ready documents whose name contains the
	// fragment, case-insensitive.
	FindByNameFragment(ctx context.Context, userId uuid.UUID, fragment string) ([]*entity.Document, error)
}
