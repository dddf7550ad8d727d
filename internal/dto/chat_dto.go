package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	ConversationId *uuid.UUID  `json:"conversation_id,omitempty"`
	Message        string      `json:"message" validate:"required,max=8000"`
	Language       string      `json:"language,omitempty" validate:"omitempty,oneof=en pt es"`
	Style          string      `json:"style,omitempty" validate:"omitempty,oneof=friendly professional"`
	DocumentIds    []uuid.UUID `json:"document_ids,omitempty" validate:"max=10"`
	SelectedIds    []uuid.UUID `json:"selected_document_ids,omitempty" validate:"max=10"`
}

type ChatCitationDTO struct {
	DocumentId   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	ChunkIndex   int       `json:"chunk_index"`
	Snippet      string    `json:"snippet,omitempty"`
}

type ChatVerdictDTO struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Overridden bool    `json:"overridden,omitempty"`
	Segments   int     `json:"segments,omitempty"`
}

type SendChatResponse struct {
	ConversationId uuid.UUID         `json:"conversation_id"`
	MessageId      uuid.UUID         `json:"message_id"`
	Answer         string            `json:"answer"`
	Verdict        ChatVerdictDTO    `json:"verdict"`
	Citations      []ChatCitationDTO `json:"citations,omitempty"`
	Fallback       string            `json:"fallback,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type GetConversationsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id         uuid.UUID         `json:"id"`
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Intent     string            `json:"intent,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	Citations  []ChatCitationDTO `json:"citations,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type SendFeedbackRequest struct {
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
	Sentiment      string    `json:"sentiment" validate:"required,oneof=positive negative"`
	Comment        string    `json:"comment,omitempty" validate:"max=2000"`
}
