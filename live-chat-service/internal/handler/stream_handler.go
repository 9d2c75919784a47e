package handler

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/config"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/emitter"
	"github.com/weiawesome/wes-live-chat/pkg/log"
	"github.com/weiawesome/wes-live-chat/pkg/response"
)

// StreamHandler serves server-sent event streams of chat notifications.
type StreamHandler struct {
	bus    *emitter.Bus
	config config.StreamConfig

	open      atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

// NewStreamHandler creates a stream handler on top of bus.
func NewStreamHandler(bus *emitter.Bus, cfg config.StreamConfig) *StreamHandler {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	return &StreamHandler{
		bus:    bus,
		config: cfg,
		done:   make(chan struct{}),
	}
}

// Subscribe holds the connection open and writes one "message-new" event per
// published chat message until the client goes away or the server shuts
// down. The bus registration lives exactly as long as this call.
func (h *StreamHandler) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	select {
	case <-h.done:
		response.ServiceUnavailable(c, "server is shutting down")
		return
	default:
	}

	notes := make(chan string, h.config.BufferSize)
	sub := h.bus.Subscribe(domain.EventMessage, func(payload string) error {
		select {
		case notes <- payload:
			return nil
		default:
			return emitter.ErrSubscriberLagging
		}
	})
	defer h.bus.Unsubscribe(sub)
	h.open.Add(1)
	defer h.open.Add(-1)

	header := c.Writer.Header()
	header.Set("Content-Type", sse.ContentType)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	l.Debug().Str(log.FieldEvent, sub.Event()).Int64("streams", h.open.Load()).Msg("stream opened")
	defer func() { l.Debug().Msg("stream closed") }()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case id := <-notes:
			if err := writeEvent(c.Writer, id); err != nil {
				l.Debug().Err(err).Msg("stream write failed")
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": ping\n\n"); err != nil {
				l.Debug().Err(err).Msg("stream ping failed")
				return
			}
			c.Writer.Flush()
		}
	}
}

// Shutdown ends every open stream and refuses new ones.
func (h *StreamHandler) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// Subscribers returns the number of open streams.
func (h *StreamHandler) Subscribers() int {
	return int(h.open.Load())
}

func writeEvent(w gin.ResponseWriter, id string) error {
	err := sse.Encode(w, sse.Event{
		Event: domain.SSEEventMessageNew,
		Data:  id,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	w.Flush()
	return nil
}
