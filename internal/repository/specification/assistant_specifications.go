package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByUser filters rows owned by a user.
type ByUser struct {
	UserID uuid.UUID
}

func (s ByUser) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// ByConversation filters chat messages and feedback by conversation.
type ByConversation struct {
	ConversationID uuid.UUID
}

func (s ByConversation) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

// ByStatus filters documents by processing status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// NameContains does a case-insensitive substring match on name.
type NameContains struct {
	Fragment string
}

func (s NameContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name ILIKE ?", "%"+s.Fragment+"%")
}

// ByRole filters chat messages by role.
type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}

// BySentiment filters feedback entries.
type BySentiment struct {
	Sentiment string
}

func (s BySentiment) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sentiment = ?", s.Sentiment)
}
