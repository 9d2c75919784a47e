package domain

import (
	"strconv"
	"time"
)

// Event names on the in-process emitter.
const (
	// EventMessage is published once per persisted chat message; the payload
	// is the message ID in decimal.
	EventMessage = "message"
)

// SSEEventMessageNew is the event name written on subscriber streams.
const SSEEventMessageNew = "message-new"

// ChatMessage is a persisted chat message.
type ChatMessage struct {
	ID        uint64    `json:"id"`
	Room      string    `json:"room"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IDString returns the notification payload for the message.
func (m *ChatMessage) IDString() string {
	return strconv.FormatUint(m.ID, 10)
}

// ChatMessageView is one transcript row with the author's display fields.
type ChatMessageView struct {
	ID        uint64    `json:"id"`
	Room      string    `json:"room"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	Nickname  string    `json:"nickname"`
	ChatColor string    `json:"chat_color"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is a chat submission, accepted as form or JSON.
type SendMessageRequest struct {
	Message string `form:"message" json:"message"`
	Room    string `form:"room" json:"room"`
	UserID  string `form:"user_id" json:"user_id"`
}

// ListMessagesResponse is a page of the room transcript, newest first.
type ListMessagesResponse struct {
	Room     string            `json:"room"`
	Messages []ChatMessageView `json:"messages"`
}
