package audit

import (
	"context"

	"github.com/weiawesome/wes-live-chat/pkg/log"
)

// Audit actions for live-chat-service.
const (
	ActionSendMessage = "chat.message.send"
)

const FieldAction = "action"

// LogMessage emits a structured audit entry for a persisted chat message.
func LogMessage(ctx context.Context, action, userID, room string, messageID uint64, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldRoomID, room).
		Uint64(log.FieldMessageID, messageID).
		Msg(msg)
}
