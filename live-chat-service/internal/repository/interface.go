package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
)

var (
	// ErrConstraintViolation is returned when the store refuses a write,
	// e.g. for an unknown user.
	ErrConstraintViolation = errors.New("chat message violates store constraints")
)

// MessageRepository defines the interface for chat message persistence.
type MessageRepository interface {
	// Create inserts msg and fills in its ID and timestamps.
	Create(ctx context.Context, msg *domain.ChatMessage) error
	// ListByRoom returns up to limit messages of room, newest first.
	ListByRoom(ctx context.Context, room string, limit int) ([]domain.ChatMessageView, error)
}
