package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserPreference struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId      uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Language    string
	AnswerStyle string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
