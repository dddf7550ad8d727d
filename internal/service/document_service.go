package service

import (
	"context"
	"fmt"
	"time"

	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/repository/memory"
	"doc-assistant-be/internal/repository/specification"
	"doc-assistant-be/internal/repository/unitofwork"
	"doc-assistant-be/pkg/embedding"
	"doc-assistant-be/pkg/utils"

	"github.com/google/uuid"
)

// Chunking parameters: ~375 tokens per chunk with overlap to preserve
// context at boundaries.
const (
	documentChunkSize    = 1500
	documentChunkOverlap = 200
)

type IDocumentService interface {
	Register(ctx context.Context, userId uuid.UUID, request *dto.RegisterDocumentRequest) (*dto.DocumentResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) error
	GetWorkspaceStats(ctx context.Context, userId uuid.UUID) (*dto.WorkspaceStatsResponse, error)
}

type documentService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	statsCache        *memory.StatsCache
	log               logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	statsCache *memory.StatsCache,
	lg logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		statsCache:        statsCache,
		log:               lg,
	}
}

// Register stores the document, chunks and embeds its content, and marks it
// ready. A document whose embedding fails is kept in failed state so the
// client can retry.
func (ds *documentService) Register(ctx context.Context, userId uuid.UUID, request *dto.RegisterDocumentRequest) (*dto.DocumentResponse, error) {
	now := time.Now()
	doc := &entity.Document{
		Id:        uuid.New(),
		UserId:    userId,
		Name:      request.Name,
		MimeType:  request.MimeType,
		SizeBytes: request.SizeBytes,
		Status:    model.DocumentStatusProcessing,
		CreatedAt: now,
	}
	if doc.SizeBytes == 0 {
		doc.SizeBytes = int64(len(request.Content))
	}

	uow := ds.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	ds.statsCache.Invalidate(userId.String())

	chunks := utils.SplitText(request.Content, documentChunkSize, documentChunkOverlap)
	ds.log.Info("document", "content split for embedding", map[string]interface{}{
		"document_id": doc.Id.String(),
		"chunks":      len(chunks),
	})

	chunkEntities := make([]*entity.DocumentChunk, 0, len(chunks))
	totalTokens := 0
	for i, chunk := range chunks {
		res, err := ds.embeddingProvider.Generate(chunk, "RETRIEVAL_DOCUMENT")
		if err != nil {
			ds.markFailed(ctx, doc)
			return nil, newChatError(ErrCodeUpstream, fmt.Sprintf("embed chunk %d", i), err)
		}
		tokens := len(chunk) / 4
		totalTokens += tokens
		chunkEntities = append(chunkEntities, &entity.DocumentChunk{
			Id:             uuid.New(),
			DocumentId:     doc.Id,
			ChunkIndex:     i,
			Content:        chunk,
			TokenCount:     tokens,
			EmbeddingValue: res.Embedding.Values,
			CreatedAt:      now,
		})
	}

	uow = ds.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunkEntities); err != nil {
		return nil, err
	}
	updatedAt := time.Now()
	doc.Status = model.DocumentStatusReady
	doc.TokenCount = totalTokens
	doc.UpdatedAt = &updatedAt
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	ds.statsCache.Invalidate(userId.String())
	return toDocumentResponse(doc), nil
}

func (ds *documentService) markFailed(ctx context.Context, doc *entity.Document) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()
	doc.Status = model.DocumentStatusFailed
	doc.UpdatedAt = &now
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		ds.log.Error("document", "failed to mark document failed", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}
}

func (ds *documentService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByUser{UserID: userId},
		specification.NotDeleted{},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	return out, nil
}

func (ds *documentService) Delete(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) error {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: documentId},
		specification.ByUser{UserID: userId},
		specification.NotDeleted{},
	)
	if err != nil {
		return err
	}
	if doc == nil {
		return newChatError(ErrCodeNotFound, "document not found", nil)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, documentId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	ds.statsCache.Invalidate(userId.String())
	return nil
}

func (ds *documentService) GetWorkspaceStats(ctx context.Context, userId uuid.UUID) (*dto.WorkspaceStatsResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByUser{UserID: userId},
		specification.NotDeleted{},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.WorkspaceStatsResponse{DocumentCount: int64(len(docs))}
	var largest *entity.Document
	var newest *entity.Document
	for _, d := range docs {
		res.StorageBytes += d.SizeBytes
		if largest == nil || d.SizeBytes > largest.SizeBytes {
			largest = d
		}
		if newest == nil || d.CreatedAt.After(newest.CreatedAt) {
			newest = d
		}
	}
	if largest != nil {
		res.LargestName = largest.Name
	}
	if newest != nil {
		res.NewestName = newest.Name
		createdAt := newest.CreatedAt
		res.NewestAt = &createdAt
	}
	return res, nil
}

func toDocumentResponse(d *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:        d.Id,
		Name:      d.Name,
		MimeType:  d.MimeType,
		SizeBytes: d.SizeBytes,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
