package service

import (
	"context"

	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/repository/specification"
	"doc-assistant-be/internal/repository/unitofwork"
	"doc-assistant-be/pkg/embedding"
	"doc-assistant-be/pkg/retrieval"

	"github.com/google/uuid"
)

// workspaceDocumentFinder backs the retrieval pipeline with the document
// repository, scoped to ready documents.
type workspaceDocumentFinder struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewWorkspaceDocumentFinder(uowFactory unitofwork.RepositoryFactory) retrieval.DocumentFinder {
	return &workspaceDocumentFinder{uowFactory: uowFactory}
}

func (f *workspaceDocumentFinder) FindOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]retrieval.DocumentRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	uow := f.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByUser{UserID: userID},
		specification.ByIDs{IDs: ids},
		specification.ByStatus{Status: model.DocumentStatusReady},
		specification.NotDeleted{},
	)
	if err != nil {
		return nil, err
	}
	refs := make([]retrieval.DocumentRef, 0, len(docs))
	for _, d := range docs {
		ref := retrieval.DocumentRef{ID: d.Id, Name: d.Name}
		if d.UpdatedAt != nil {
			ref.UpdatedAt = *d.UpdatedAt
		} else {
			ref.UpdatedAt = d.CreatedAt
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (f *workspaceDocumentFinder) FindByNameFragment(ctx context.Context, userID uuid.UUID, fragment string) ([]retrieval.DocumentRef, error) {
	uow := f.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindByNameFragment(ctx, userID, fragment)
	if err != nil {
		return nil, err
	}
	refs := make([]retrieval.DocumentRef, 0, len(docs))
	for _, d := range docs {
		ref := retrieval.DocumentRef{ID: d.Id, Name: d.Name}
		if d.UpdatedAt != nil {
			ref.UpdatedAt = *d.UpdatedAt
		} else {
			ref.UpdatedAt = d.CreatedAt
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (f *workspaceDocumentFinder) ListReady(ctx context.Context, userID uuid.UUID) ([]retrieval.DocumentRef, error) {
	uow := f.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByUser{UserID: userID},
		specification.ByStatus{Status: model.DocumentStatusReady},
		specification.NotDeleted{},
	)
	if err != nil {
		return nil, err
	}
	refs := make([]retrieval.DocumentRef, 0, len(docs))
	for _, d := range docs {
		ref := retrieval.DocumentRef{ID: d.Id, Name: d.Name}
		if d.UpdatedAt != nil {
			ref.UpdatedAt = *d.UpdatedAt
		} else {
			ref.UpdatedAt = d.CreatedAt
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// chunkSearcher bridges the pipeline to the pgvector-backed chunk repository.
type chunkSearcher struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewChunkSearcher(uowFactory unitofwork.RepositoryFactory) retrieval.ChunkSearcher {
	return &chunkSearcher{uowFactory: uowFactory}
}

func (s *chunkSearcher) SearchSimilar(ctx context.Context, userID uuid.UUID, docIDs []uuid.UUID, queryEmbedding []float32, limit int) ([]retrieval.ChunkHit, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// The pipeline filters on the merged score, so no similarity threshold
	// here.
	scored, err := uow.DocumentChunkRepository().SearchSimilarWithScore(ctx, queryEmbedding, limit, userID, docIDs, 0)
	if err != nil {
		return nil, err
	}
	hits := make([]retrieval.ChunkHit, 0, len(scored))
	for _, sc := range scored {
		hits = append(hits, retrieval.ChunkHit{
			ChunkID:      sc.Chunk.Id,
			DocumentID:   sc.Chunk.DocumentId,
			DocumentName: sc.DocumentName,
			Content:      sc.Chunk.Content,
			ChunkIndex:   sc.Chunk.ChunkIndex,
			Similarity:   sc.Similarity,
			TokenCount:   sc.Chunk.TokenCount,
		})
	}
	return hits, nil
}

// providerEmbedder adapts the embedding provider to the pipeline contract.
type providerEmbedder struct {
	provider embedding.EmbeddingProvider
}

func NewProviderEmbedder(provider embedding.EmbeddingProvider) retrieval.Embedder {
	return &providerEmbedder{provider: provider}
}

func (e *providerEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	res, err := e.provider.Generate(text, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return res.Embedding.Values, nil
}
