package entity

import (
	"time"

	"github.com/google/uuid"
)

// MessageCitation is one source reference attached to an assistant message.
type MessageCitation struct {
	DocumentId   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	ChunkIndex   int       `json:"chunk_index"`
	Snippet      string    `json:"snippet,omitempty"`
}

// MessageMetadata is the structured payload persisted alongside an assistant
// message.
type MessageMetadata struct {
	Language     string            `json:"language,omitempty"`
	Overridden   bool              `json:"overridden,omitempty"`
	OverrideRule string            `json:"override_rule,omitempty"`
	Segments     int               `json:"segments,omitempty"`
	Citations    []MessageCitation `json:"citations,omitempty"`
	TokensUsed   int               `json:"tokens_used,omitempty"`
	FinishReason string            `json:"finish_reason,omitempty"`
	Fallback     string            `json:"fallback,omitempty"`
}

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;index"`
	UserId         uuid.UUID `gorm:"type:uuid;index"`
	Role           string
	Content        string
	Intent         string
	Confidence     float64
	Metadata       *MessageMetadata
	CreatedAt      time.Time
}
