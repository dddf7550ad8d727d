package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserMemory is a fact the user asked the assistant to remember.
type UserMemory struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Content   string         `gorm:"type:text;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (UserMemory) TableName() string {
	return "user_memories"
}
