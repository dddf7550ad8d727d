package entity

import (
	"time"

	"github.com/google/uuid"
)

type FeedbackEntry struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId         uuid.UUID `gorm:"type:uuid;index"`
	ConversationId uuid.UUID `gorm:"type:uuid;index"`
	Sentiment      string
	Comment        string
	CreatedAt      time.Time
}
