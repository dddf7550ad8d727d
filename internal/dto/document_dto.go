package dto

import (
	"time"

	"github.com/google/uuid"
)

type DocumentResponse struct {
	Id        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	MimeType  string     `json:"mime_type,omitempty"`
	SizeBytes int64      `json:"size_bytes"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type RegisterDocumentRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	MimeType  string `json:"mime_type,omitempty" validate:"max=100"`
	SizeBytes int64  `json:"size_bytes" validate:"gte=0"`
	Content   string `json:"content" validate:"required"`
}

type WorkspaceStatsResponse struct {
	DocumentCount int64      `json:"document_count"`
	StorageBytes  int64      `json:"storage_bytes"`
	LargestName   string     `json:"largest_document,omitempty"`
	NewestName    string     `json:"newest_document,omitempty"`
	NewestAt      *time.Time `json:"newest_uploaded_at,omitempty"`
}
