package implementation

import (
	"context"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/mapper"
	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.DocumentChunk{}).Error
}

// SearchSimilarWithScore computes cosine similarity in SQL. pgvector's <=>
// operator is cosine distance, so similarity = 1 - distance. The join with
// documents enforces ownership and drops soft-deleted rows on both sides.
func (r *DocumentChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, documentIds []uuid.UUID, threshold float64) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 20
	}

	type result struct {
		model.DocumentChunk
		DocumentName string
		Similarity   float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, documents.name as document_name, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.user_id = ?", userId).
		Where("documents.status = ?", model.DocumentStatusReady).
		Where("document_chunks.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)

	if len(documentIds) > 0 {
		query = query.Where("document_chunks.document_id IN ?", documentIds)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk:        r.mapper.ToEntity(&res.DocumentChunk),
			DocumentName: res.DocumentName,
			Similarity:   res.Similarity,
		}
	}
	return scored, nil
}
