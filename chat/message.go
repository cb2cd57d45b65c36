// Package chat holds the conversation model behind the Sparrow assistant UI:
// messages, the fixed session catalog, the canned responder and the reducer
// that moves a conversation from one state to the next.
package chat

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting is always the first message of a conversation.
const Greeting = "Hello! I'm Sparrow, your legal AI assistant. I can help you with legal questions, analyze documents, and provide research assistance. How can I help you today?"

// Attachment is the document summary an assistant reply may carry.
type Attachment struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// Message is immutable once appended to a State.
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Text       string      `json:"text"`
	CreatedAt  time.Time   `json:"created_at"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

func NewGreeting(id string, at time.Time) Message {
	return Message{
		ID:        id,
		Role:      RoleAssistant,
		Text:      Greeting,
		CreatedAt: at,
	}
}

// Clone returns a copy of m that shares no attachment memory with it.
func (m Message) Clone() Message {
	if m.Attachment != nil {
		a := *m.Attachment
		a.KeyPoints = append([]string(nil), m.Attachment.KeyPoints...)
		m.Attachment = &a
	}
	return m
}
