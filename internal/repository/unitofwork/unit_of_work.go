package unitofwork

import (
	"context"

	"doc-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	DocumentChunkRepository() contract.DocumentChunkRepository
	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
	FeedbackRepository() contract.FeedbackRepository
	UserPreferenceRepository() contract.UserPreferenceRepository
	UserMemoryRepository() contract.UserMemoryRepository
}
