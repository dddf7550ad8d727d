package mapper

import (
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}
	return &entity.DocumentChunk{
		Id:             c.Id,
		DocumentId:     c.DocumentId,
		ChunkIndex:     c.ChunkIndex,
		Content:        c.Content,
		TokenCount:     c.TokenCount,
		EmbeddingValue: c.EmbeddingValue.Slice(),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *DocumentChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}
	return &model.DocumentChunk{
		Id:             c.Id,
		DocumentId:     c.DocumentId,
		ChunkIndex:     c.ChunkIndex,
		Content:        c.Content,
		TokenCount:     c.TokenCount,
		EmbeddingValue: pgvector.NewVector(c.EmbeddingValue),
		CreatedAt:      c.CreatedAt,
	}
}
