package mapper

import (
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"
)

type UserMemoryMapper struct{}

func NewUserMemoryMapper() *UserMemoryMapper {
	return &UserMemoryMapper{}
}

func (m *UserMemoryMapper) ToEntity(u *model.UserMemory) *entity.UserMemory {
	if u == nil {
		return nil
	}
	return &entity.UserMemory{
		Id:        u.Id,
		UserId:    u.UserId,
		Content:   u.Content,
		CreatedAt: u.CreatedAt,
		IsDeleted: u.DeletedAt.Valid,
	}
}

func (m *UserMemoryMapper) ToModel(u *entity.UserMemory) *model.UserMemory {
	if u == nil {
		return nil
	}
	return &model.UserMemory{
		Id:        u.Id,
		UserId:    u.UserId,
		Content:   u.Content,
		CreatedAt: u.CreatedAt,
	}
}

func (m *UserMemoryMapper) ToEntities(ms []*model.UserMemory) []*entity.UserMemory {
	entities := make([]*entity.UserMemory, len(ms))
	for i, u := range ms {
		entities[i] = m.ToEntity(u)
	}
	return entities
}
