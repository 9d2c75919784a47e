package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-live-chat/pkg/log"
)

func TestLogMessage(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(log.Config{Output: &buf}))

	LogMessage(ctx, ActionSendMessage, "u1", "alice", 42, "chat message sent")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, log.LogTypeAudit, line[log.FieldLogType])
	assert.Equal(t, ActionSendMessage, line[FieldAction])
	assert.Equal(t, "u1", line[log.FieldUserID])
	assert.Equal(t, "alice", line[log.FieldRoomID])
	assert.EqualValues(t, 42, line[log.FieldMessageID])
}
