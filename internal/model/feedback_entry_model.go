package model

import (
	"time"

	"github.com/google/uuid"
)

// Feedback sentiments.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

type FeedbackEntry struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID `gorm:"type:uuid;not null;index"`
	ConversationId uuid.UUID `gorm:"type:uuid;index"`
	Sentiment      string    `gorm:"type:varchar(10);not null;index"`
	Comment        string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (FeedbackEntry) TableName() string {
	return "feedback_entries"
}
