package domain

import "time"

// MessageRole identifies the author of a chat message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatSession groups a conversation's messages
type ChatSession struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one turn in a chat session
type ChatMessage struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	Citations []Citation
	Refused   bool
	CreatedAt time.Time
}

// SessionStats summarizes a chat session
type SessionStats struct {
	SessionID    string
	MessageCount int
	CreatedAt    time.Time
	LastActivity time.Time
}
