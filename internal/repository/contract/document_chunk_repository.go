package contract

import (
	"context"

	"doc-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredChunk pairs a chunk with its cosine similarity to the query vector.
type ScoredChunk struct {
	Chunk        *entity.DocumentChunk
	DocumentName string
	Similarity   float64
}

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	// SearchSimilarWithScore runs cosine search scoped to the user's
	// documents. When documentIds is non-empty the search is restricted to
	// those documents.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, documentIds []uuid.UUID, threshold float64) ([]*ScoredChunk, error)
}
