package events

import "time"

// Event type codes published by the chat pipeline.
const (
	TypeAnswerCompleted  = "ANSWER_COMPLETED"
	TypeFeedbackReceived = "FEEDBACK_RECEIVED"
	TypeSafetyConcern    = "SAFETY_CONCERN"
	TypeFeatureRequest   = "FEATURE_REQUEST"
)

// NewAnswerCompleted is emitted after a terminal answer (streamed or not) is
// persisted.
func NewAnswerCompleted(userID, conversationID, intent string, confidence float64, citations int) Event {
	return BaseEvent{
		Type: TypeAnswerCompleted,
		Data: map[string]interface{}{
			"user_id":         userID,
			"conversation_id": conversationID,
			"intent":          intent,
			"confidence":      confidence,
			"citations":       citations,
		},
		OccurredAt: time.Now(),
	}
}

// NewFeedbackReceived is emitted when a message classifies as positive or
// negative feedback.
func NewFeedbackReceived(userID, conversationID, sentiment, message string) Event {
	return BaseEvent{
		Type: TypeFeedbackReceived,
		Data: map[string]interface{}{
			"user_id":         userID,
			"conversation_id": conversationID,
			"sentiment":       sentiment,
			"message":         message,
		},
		OccurredAt: time.Now(),
	}
}

// NewSafetyConcern is emitted when a message trips the safety patterns, so
// downstream review tooling can pick it up.
func NewSafetyConcern(userID, conversationID string) Event {
	return BaseEvent{
		Type: TypeSafetyConcern,
		Data: map[string]interface{}{
			"user_id":         userID,
			"conversation_id": conversationID,
		},
		OccurredAt: time.Now(),
	}
}

// NewFeatureRequest is emitted when a message reads as a product suggestion.
func NewFeatureRequest(userID, conversationID, message string) Event {
	return BaseEvent{
		Type: TypeFeatureRequest,
		Data: map[string]interface{}{
			"user_id":         userID,
			"conversation_id": conversationID,
			"message":         message,
		},
		OccurredAt: time.Now(),
	}
}
