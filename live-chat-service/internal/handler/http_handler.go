package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/service"
	"github.com/weiawesome/wes-live-chat/pkg/log"
	"github.com/weiawesome/wes-live-chat/pkg/response"
)

// Handler handles HTTP requests for the chat write path and transcript.
type Handler struct {
	chatService service.ChatService
	stream      *StreamHandler
}

// NewHandler creates a new HTTP handler.
func NewHandler(chatService service.ChatService, stream *StreamHandler) *Handler {
	return &Handler{
		chatService: chatService,
		stream:      stream,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)
	r.GET("/chat/subscribe", h.stream.Subscribe)

	api := r.Group("/api/v1")
	{
		rooms := api.Group("/rooms")
		{
			rooms.GET("/:room_id/messages", h.ListMessages)
			rooms.POST("/:room_id/messages", h.SendMessage)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
}

// SendMessage persists a chat submission and notifies subscribers.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind send message request")
		response.BadRequest(c, "invalid chat submission")
		return
	}
	if req.Room == "" {
		req.Room = c.Param("room_id")
	}
	if req.UserID != "" {
		c.Set(log.FieldUserID, req.UserID)
	}

	msg, err := h.chatService.SendMessage(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			response.Created(c)
		case errors.Is(err, service.ErrMissingRoom),
			errors.Is(err, service.ErrMissingUser),
			errors.Is(err, service.ErrMessageTooLong):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrMessageRejected):
			response.Error(c, http.StatusBadRequest, response.CodeMessageRejected, "message rejected: unknown room or user")
		default:
			l.Error().Err(err).Str(log.FieldRoomID, req.Room).Msg("failed to send message")
			response.InternalError(c, "failed to send message")
		}
		return
	}

	l.Debug().Uint64(log.FieldMessageID, msg.ID).Str(log.FieldRoomID, msg.Room).Msg("chat message accepted")
	response.Created(c)
}

// ListMessages returns the latest messages of a room.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("room_id")

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	result, err := h.chatService.ListMessages(ctx, roomID, limit)
	if err != nil {
		if errors.Is(err, service.ErrMissingRoom) {
			response.BadRequest(c, err.Error())
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages")
		response.InternalError(c, "failed to list messages")
		return
	}

	response.Success(c, result)
}

// HealthCheck reports liveness and the number of open streams.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": h.stream.Subscribers(),
	})
}
