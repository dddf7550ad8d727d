package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;index"`
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsDeleted bool
}
