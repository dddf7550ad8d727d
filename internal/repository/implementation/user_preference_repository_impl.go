package implementation

import (
	"context"
	"errors"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/mapper"
	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserPreferenceRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserPreferenceMapper
}

func NewUserPreferenceRepository(db *gorm.DB) contract.UserPreferenceRepository {
	return &UserPreferenceRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserPreferenceMapper(),
	}
}

func (r *UserPreferenceRepositoryImpl) Upsert(ctx context.Context, pref *entity.UserPreference) error {
	m := r.mapper.ToModel(pref)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"language", "answer_style", "updated_at"}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*pref = *r.mapper.ToEntity(m)
	return nil
}

func (r *UserPreferenceRepositoryImpl) FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.UserPreference, error) {
	var m model.UserPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
