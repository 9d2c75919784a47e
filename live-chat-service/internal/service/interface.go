package service

import (
	"context"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
)

// Publisher delivers a notification to the current subscribers of an event.
// Implementations never report delivery failures to the caller.
type Publisher interface {
	Publish(ctx context.Context, event, payload string)
}

// ChatService defines the interface for chat business logic.
type ChatService interface {
	// SendMessage validates and persists a submission, then publishes the
	// new message ID. ErrEmptyMessage marks a submission that was ignored.
	SendMessage(ctx context.Context, req *domain.SendMessageRequest) (*domain.ChatMessage, error)
	// ListMessages returns the latest messages of a room, newest first.
	ListMessages(ctx context.Context, room string, limit int) (*domain.ListMessagesResponse, error)
	// HandleMessageEvent is an emitter.Handler for message events. It keeps
	// transcript loads started before the event from serving callers that
	// arrive after it.
	HandleMessageEvent(payload string) error
}
