package mapper

import (
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"
)

type FeedbackMapper struct{}

func NewFeedbackMapper() *FeedbackMapper {
	return &FeedbackMapper{}
}

func (m *FeedbackMapper) ToEntity(f *model.FeedbackEntry) *entity.FeedbackEntry {
	if f == nil {
		return nil
	}
	return &entity.FeedbackEntry{
		Id:             f.Id,
		UserId:         f.UserId,
		ConversationId: f.ConversationId,
		Sentiment:      f.Sentiment,
		Comment:        f.Comment,
		CreatedAt:      f.CreatedAt,
	}
}

func (m *FeedbackMapper) ToModel(f *entity.FeedbackEntry) *model.FeedbackEntry {
	if f == nil {
		return nil
	}
	return &model.FeedbackEntry{
		Id:             f.Id,
		UserId:         f.UserId,
		ConversationId: f.ConversationId,
		Sentiment:      f.Sentiment,
		Comment:        f.Comment,
		CreatedAt:      f.CreatedAt,
	}
}
