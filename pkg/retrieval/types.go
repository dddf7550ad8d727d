// Package retrieval ranks document chunks for answering a query: candidate
// resolution, hybrid vector+keyword scoring, per-document diversity capping
// and token budgeting.
package retrieval

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DocumentRef is the slice of document metadata the pipeline needs.
type DocumentRef struct {
	ID        uuid.UUID
	Name      string
	UpdatedAt time.Time
}

// ChunkHit is one chunk returned by vector search, with its cosine similarity.
type ChunkHit struct {
	ChunkID      uuid.UUID
	DocumentID   uuid.UUID
	DocumentName string
	Content      string
	ChunkIndex   int
	Similarity   float64
	TokenCount   int
}

// RankedChunk is a chunk that survived ranking, with its score breakdown.
type RankedChunk struct {
	ChunkHit
	KeywordScore float64
	MergedScore  float64
	Boost        float64
	BoostedScore float64
}

// DocumentFinder resolves candidate documents for a user.
type DocumentFinder interface {
	// FindOwned returns the subset of ids owned by the user and ready for
	// retrieval.
	FindOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]DocumentRef, error)
	// FindByNameFragment matches ready documents whose name contains the
	// fragment (case-insensitive).
	FindByNameFragment(ctx context.Context, userID uuid.UUID, fragment string) ([]DocumentRef, error)
	// ListReady returns every ready document in the user's workspace.
	ListReady(ctx context.Context, userID uuid.UUID) ([]DocumentRef, error)
}

// ChunkSearcher runs vector similarity search scoped to the given documents.
type ChunkSearcher interface {
	SearchSimilar(ctx context.Context, userID uuid.UUID, docIDs []uuid.UUID, embedding []float32, limit int) ([]ChunkHit, error)
}

// Embedder produces the query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Request is one retrieval invocation.
type Request struct {
	UserID uuid.UUID
	Query  string
	// ExplicitDocIDs are documents the user named by id in the request
	// payload.
	ExplicitDocIDs []uuid.UUID
	// SelectedDocIDs are documents highlighted in the UI when the message
	// was sent.
	SelectedDocIDs []uuid.UUID
	// NameFragment is a document name mentioned in the query text, when
	// the caller extracted one.
	NameFragment string
	// MaxTokens overrides the configured budget when positive.
	MaxTokens int
}
