package implementation

import (
	"context"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/mapper"
	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserMemoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMemoryMapper
}

func NewUserMemoryRepository(db *gorm.DB) contract.UserMemoryRepository {
	return &UserMemoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMemoryMapper(),
	}
}

func (r *UserMemoryRepositoryImpl) Create(ctx context.Context, mem *entity.UserMemory) error {
	m := r.mapper.ToModel(mem)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*mem = *r.mapper.ToEntity(m)
	return nil
}

func (r *UserMemoryRepositoryImpl) FindAllByUserId(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.UserMemory, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []*model.UserMemory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *UserMemoryRepositoryImpl) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.UserMemory{}).Error
}
