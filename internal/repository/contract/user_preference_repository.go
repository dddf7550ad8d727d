package contract

import (
	"context"

	"doc-assistant-be/internal/entity"

	"github.com/google/uuid"
)

type UserPreferenceRepository interface {
	// Upsert creates the row on first write, updates it afterwards.
	Upsert(ctx context.Context, pref *entity.UserPreference) error
	FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.UserPreference, error)
}
