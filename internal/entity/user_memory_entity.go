package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserMemory struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;index"`
	Content   string
	CreatedAt time.Time
	IsDeleted bool
}
