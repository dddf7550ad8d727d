package implementation

import (
	"context"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/mapper"
	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
)

type FeedbackRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FeedbackMapper
}

func NewFeedbackRepository(db *gorm.DB) contract.FeedbackRepository {
	return &FeedbackRepositoryImpl{
		db:     db,
		mapper: mapper.NewFeedbackMapper(),
	}
}

func (r *FeedbackRepositoryImpl) Create(ctx context.Context, fb *entity.FeedbackEntry) error {
	m := r.mapper.ToModel(fb)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*fb = *r.mapper.ToEntity(m)
	return nil
}

func (r *FeedbackRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.FeedbackEntry{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
