package mapper

import (
	"encoding/json"

	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/model"

	"gorm.io/datatypes"
)

type MessageMapper struct{}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{}
}

func (m *MessageMapper) ToEntity(msg *model.ChatMessage) *entity.Message {
	if msg == nil {
		return nil
	}

	var meta *entity.MessageMetadata
	if len(msg.Metadata) > 0 {
		var parsed entity.MessageMetadata
		if err := json.Unmarshal(msg.Metadata, &parsed); err == nil {
			meta = &parsed
		}
	}

	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		Intent:         msg.Intent,
		Confidence:     msg.Confidence,
		Metadata:       meta,
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *MessageMapper) ToModel(msg *entity.Message) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var meta datatypes.JSON
	if msg.Metadata != nil {
		if raw, err := json.Marshal(msg.Metadata); err == nil {
			meta = raw
		}
	}

	return &model.ChatMessage{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		Intent:         msg.Intent,
		Confidence:     msg.Confidence,
		Metadata:       meta,
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *MessageMapper) ToEntities(msgs []*model.ChatMessage) []*entity.Message {
	entities := make([]*entity.Message, len(msgs))
	for i, msg := range msgs {
		entities[i] = m.ToEntity(msg)
	}
	return entities
}
