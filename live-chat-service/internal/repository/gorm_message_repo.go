package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
	"github.com/weiawesome/wes-live-chat/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create inserts a chat message.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	l := log.Ctx(ctx)

	model := domain.ChatMessageToModel(msg)
	if err := r.db.WithContext(ctx).Omit("User").Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn().Err(err).Str(log.FieldRoomID, msg.Room).Str(log.FieldUserID, msg.UserID).Msg("chat message rejected by store")
			return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		l.Error().Err(err).Str(log.FieldRoomID, msg.Room).Msg("failed to create chat message in db")
		return err
	}

	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	msg.UpdatedAt = model.UpdatedAt
	l.Debug().Uint64(log.FieldMessageID, msg.ID).Str(log.FieldRoomID, msg.Room).Msg("chat message created in db")
	return nil
}

// ListByRoom retrieves the latest messages of a room with author fields.
func (r *GormMessageRepository) ListByRoom(ctx context.Context, room string, limit int) ([]domain.ChatMessageView, error) {
	l := log.Ctx(ctx)

	if limit < 1 {
		limit = 40
	}

	var models []domain.ChatMessageModel
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("room = ?", room).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, room).Msg("failed to list chat messages from db")
		return nil, err
	}

	views := make([]domain.ChatMessageView, len(models))
	for i := range models {
		views[i] = models[i].ToView()
	}
	return views, nil
}
