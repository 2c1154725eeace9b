package entities

import (
	"encoding/json"
	"time"
)

// MessageRole identifies who authored a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Conversation groups an ordered exchange of chat messages.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title,omitempty" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is one persisted chat turn. ContentJSON carries optional
// structured grounding context alongside the plain text; ParentID links
// an assistant reply to the user message it answers.
type Message struct {
	ID             string          `json:"id" db:"id"`
	ConversationID string          `json:"conversation_id" db:"conversation_id"`
	ParentID       *string         `json:"parent_id,omitempty" db:"parent_id"`
	Role           MessageRole     `json:"role" db:"role"`
	Text           string          `json:"text" db:"text"`
	ContentJSON    json.RawMessage `json:"content_json,omitempty" db:"content_json"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// TranscriptEntry is one line of an in-memory chat transcript. Unlike
// Message it lives only for the duration of a streaming session.
type TranscriptEntry struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text"`
}
