package mapper

import (
	"time"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"
)

type UserPreferenceMapper struct{}

func NewUserPreferenceMapper() *UserPreferenceMapper {
	return &UserPreferenceMapper{}
}

func (m *UserPreferenceMapper) ToEntity(p *model.UserPreference) *entity.UserPreference {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	return &entity.UserPreference{
		Id:          p.Id,
		UserId:      p.UserId,
		Language:    p.Language,
		AnswerStyle: p.AnswerStyle,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *UserPreferenceMapper) ToModel(p *entity.UserPreference) *model.UserPreference {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	return &model.UserPreference{
		Id:          p.Id,
		UserId:      p.UserId,
		Language:    p.Language,
		AnswerStyle: p.AnswerStyle,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}
