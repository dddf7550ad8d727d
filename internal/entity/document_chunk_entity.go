package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentChunk struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentId     uuid.UUID `gorm:"type:uuid;index"`
	ChunkIndex     int
	Content        string
	TokenCount     int
	EmbeddingValue []float32
	CreatedAt      time.Time
}
