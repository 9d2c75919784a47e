package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/audit"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/cache"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/repository"
	"github.com/weiawesome/wes-live-chat/pkg/log"
)

var (
	// ErrEmptyMessage marks a submission with no text. Nothing is stored.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMissingRoom is returned when a submission or listing names no room.
	ErrMissingRoom = errors.New("room is required")
	// ErrMissingUser is returned when a submission carries no user id.
	ErrMissingUser = errors.New("user_id is required")
	// ErrMessageTooLong is returned when the text exceeds MaxMessageLength runes.
	ErrMessageTooLong = errors.New("message is too long")
	// ErrMessageRejected wraps a store constraint violation, e.g. an unknown user.
	ErrMessageRejected = errors.New("message rejected by store")
)

const (
	loadTimeout     = 5 * time.Second
	cacheSetTimeout = 2 * time.Second
)

// Options tunes validation and transcript loading.
type Options struct {
	MaxMessageLength    int
	DefaultHistoryLimit int
	MaxHistoryLimit     int
	CacheTTL            time.Duration
}

// chatServiceImpl implements ChatService interface.
type chatServiceImpl struct {
	repo      repository.MessageRepository
	cache     cache.TranscriptCache
	publisher Publisher
	opts      Options

	sf singleflight.Group
	// room -> *atomic.Uint64, bumped on every local write to the room.
	generations sync.Map
	// bumped on every message event, relayed ones included.
	epoch atomic.Uint64
	// room -> time.Time; cache is skipped until then after a failed Invalidate.
	bypass sync.Map
}

// NewChatService creates a new chat service.
func NewChatService(
	repo repository.MessageRepository,
	transcriptCache cache.TranscriptCache,
	publisher Publisher,
	opts Options,
) ChatService {
	if opts.DefaultHistoryLimit < 1 {
		opts.DefaultHistoryLimit = 40
	}
	if opts.MaxHistoryLimit < opts.DefaultHistoryLimit {
		opts.MaxHistoryLimit = opts.DefaultHistoryLimit
	}
	if transcriptCache == nil {
		transcriptCache = cache.NoopCache{}
	}

	return &chatServiceImpl{
		repo:      repo,
		cache:     transcriptCache,
		publisher: publisher,
		opts:      opts,
	}
}

// SendMessage persists a chat message and notifies subscribers.
func (s *chatServiceImpl) SendMessage(ctx context.Context, req *domain.SendMessageRequest) (*domain.ChatMessage, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	room := strings.TrimSpace(req.Room)
	if room == "" {
		return nil, ErrMissingRoom
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ErrMissingUser
	}
	if s.opts.MaxMessageLength > 0 && utf8.RuneCountInString(text) > s.opts.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := &domain.ChatMessage{
		Room:    room,
		Message: text,
		UserID:  userID,
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrConstraintViolation) {
			return nil, fmt.Errorf("%w: %v", ErrMessageRejected, err)
		}
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	// The record is durable from here on. Readers must not be served an
	// older transcript once the notification goes out.
	s.generation(room).Add(1)
	if err := s.cache.Invalidate(ctx, room); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, room).Msg("cache invalidate error, bypassing cache for room")
		s.bypass.Store(room, time.Now().Add(s.bypassWindow()))
	}

	audit.LogMessage(ctx, audit.ActionSendMessage, userID, room, msg.ID, "chat message sent")

	s.publisher.Publish(ctx, domain.EventMessage, msg.IDString())

	return msg, nil
}

// HandleMessageEvent is subscribed on the event bus. A message event may
// come from another instance whose write this process never saw, so loads
// started before it are not shared with loads started after it.
func (s *chatServiceImpl) HandleMessageEvent(string) error {
	s.epoch.Add(1)
	return nil
}

// ListMessages loads a transcript page. Concurrent loads of the same page
// share one query, but never across a write to the room. The shared query
// is detached from the caller that started it, so one viewer going away
// does not fail the others.
func (s *chatServiceImpl) ListMessages(ctx context.Context, room string, limit int) (*domain.ListMessagesResponse, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, ErrMissingRoom
	}
	limit = s.normalizeLimit(limit)
	l := log.Ctx(ctx)

	// Everything the key is built from is read before the store is queried.
	useCache := !s.cacheBypassed(room)
	var version uint64
	versionTag := "nocache"
	if useCache {
		v, err := s.cache.Version(ctx, room)
		if err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, room).Msg("cache version error")
			useCache = false
		} else {
			version = v
			versionTag = strconv.FormatUint(v, 10)
		}
	}

	key := fmt.Sprintf("%s:%d:%d:%d:%s", room, limit, s.epoch.Load(), s.generation(room).Load(), versionTag)

	ch := s.sf.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.load(loadCtx, room, limit, version, useCache)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cached, ok := res.Val.(*cache.TranscriptCacheResult)
		if !ok {
			return nil, fmt.Errorf("unexpected result type from singleflight")
		}
		return &domain.ListMessagesResponse{
			Room:     room,
			Messages: cached.Messages,
		}, nil
	}
}

func (s *chatServiceImpl) load(ctx context.Context, room string, limit int, version uint64, useCache bool) (*cache.TranscriptCacheResult, error) {
	l := log.Ctx(ctx)

	if useCache {
		cached, err := s.cache.Get(ctx, room, version, limit)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Str(log.FieldRoomID, room).Msg("cache get error")
		}
	}

	messages, err := s.repo.ListByRoom(ctx, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	result := &cache.TranscriptCacheResult{Messages: messages}
	if !useCache {
		return result, nil
	}

	// Stored under the version read before the query; if a write moved the
	// version meanwhile, this page is never read.
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), cacheSetTimeout)
		defer cancel()
		if err := s.cache.Set(cacheCtx, room, version, limit, result, s.opts.CacheTTL); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, room).Msg("cache set error")
		}
	}()

	return result, nil
}

func (s *chatServiceImpl) cacheBypassed(room string) bool {
	v, ok := s.bypass.Load(room)
	if !ok {
		return false
	}
	if time.Now().Before(v.(time.Time)) {
		return true
	}
	s.bypass.CompareAndDelete(room, v)
	return false
}

// bypassWindow covers pages already stored for the stale version and loads
// still in flight when the invalidate failed.
func (s *chatServiceImpl) bypassWindow() time.Duration {
	return 2*s.opts.CacheTTL + loadTimeout + cacheSetTimeout
}

func (s *chatServiceImpl) generation(room string) *atomic.Uint64 {
	if v, ok := s.generations.Load(room); ok {
		return v.(*atomic.Uint64)
	}
	v, _ := s.generations.LoadOrStore(room, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

func (s *chatServiceImpl) normalizeLimit(limit int) int {
	if limit < 1 {
		return s.opts.DefaultHistoryLimit
	}
	if limit > s.opts.MaxHistoryLimit {
		return s.opts.MaxHistoryLimit
	}
	return limit
}
