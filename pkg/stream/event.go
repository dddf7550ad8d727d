// Package stream defines the event protocol shared by the SSE and websocket
// chat endpoints.
package stream

// EventType tags one streamed event.
type EventType string

const (
	EventIntent     EventType = "intent"
	EventRetrieving EventType = "retrieving"
	EventGenerating EventType = "generating"
	EventContent    EventType = "content"
	EventCitation   EventType = "citation"
	EventMetadata   EventType = "metadata"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Citation points at the chunk an answer statement came from.
type Citation struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	Snippet      string `json:"snippet,omitempty"`
}

// Metadata summarizes how the answer was produced.
type Metadata struct {
	Intent          string  `json:"intent"`
	Confidence      float64 `json:"confidence"`
	Language        string  `json:"language"`
	Overridden      bool    `json:"overridden,omitempty"`
	Segments        int     `json:"segments,omitempty"`
	RetrievedChunks int     `json:"retrieved_chunks,omitempty"`
}

// Event is the tagged union sent over a chat stream. Exactly one of the
// payload fields is set, according to Type. A well-formed stream ends with
// exactly one done or error event.
type Event struct {
	Type       EventType `json:"type"`
	Intent     string    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Token      string    `json:"token,omitempty"`
	Citation   *Citation `json:"citation,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty"`
	FullAnswer string    `json:"full_answer,omitempty"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message,omitempty"`
}

func Intent(intent string, confidence float64) Event {
	return Event{Type: EventIntent, Intent: intent, Confidence: confidence}
}

func Retrieving() Event {
	return Event{Type: EventRetrieving}
}

func Generating() Event {
	return Event{Type: EventGenerating}
}

func Content(token string) Event {
	return Event{Type: EventContent, Token: token}
}

func CitationOf(c Citation) Event {
	return Event{Type: EventCitation, Citation: &c}
}

func MetadataOf(m Metadata) Event {
	return Event{Type: EventMetadata, Metadata: &m}
}

func Done(fullAnswer string) Event {
	return Event{Type: EventDone, FullAnswer: fullAnswer}
}

func Error(code, message string) Event {
	return Event{Type: EventError, Code: code, Message: message}
}

// Terminal reports whether the event ends a stream.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
