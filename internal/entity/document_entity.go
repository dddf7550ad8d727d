package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId     uuid.UUID `gorm:"type:uuid;index"`
	Name       string
	MimeType   string
	SizeBytes  int64
	Status     string
	TokenCount int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
