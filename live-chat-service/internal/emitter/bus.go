package emitter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/weiawesome/wes-live-chat/pkg/log"
)

// ErrSubscriberLagging is returned by handlers that had to drop a
// notification because their consumer is not keeping up.
var ErrSubscriberLagging = errors.New("subscriber lagging, notification dropped")

// Handler receives the payload of a published event. Handlers run on the
// publisher's goroutine and must not block.
type Handler func(payload string) error

// Subscription identifies one registration of a handler. It is the value
// passed back to Unsubscribe.
type Subscription struct {
	event string
	id    uint64
}

// Event returns the event name the subscription is registered under.
func (s *Subscription) Event() string {
	return s.event
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe dispatcher keyed by event name.
// Delivery is synchronous, in registration order, at most once, and only to
// handlers registered when Publish is called.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]entry),
	}
}

// Subscribe appends h to the handlers of event. Subscribing the same handler
// twice yields two independent subscriptions.
func (b *Bus) Subscribe(event string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{event: event, id: b.nextID}
	b.handlers[event] = append(b.handlers[event], entry{id: sub.id, handler: h})

	return sub
}

// Unsubscribe removes the registration. Nil, unknown, or already removed
// subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[sub.event]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		if len(list) == 1 {
			delete(b.handlers, sub.event)
			return
		}
		b.handlers[sub.event] = append(list[:i:i], list[i+1:]...)
		return
	}
}

// Publish invokes every handler registered for event with payload. The
// handler list is copied before dispatch, so handlers may subscribe or
// unsubscribe (themselves included) while it runs. A handler that fails or
// panics is logged and skipped; the remaining handlers still run.
func (b *Bus) Publish(ctx context.Context, event, payload string) {
	b.mu.RLock()
	snapshot := make([]entry, len(b.handlers[event]))
	copy(snapshot, b.handlers[event])
	b.mu.RUnlock()

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldEvent, event).Int("handlers", len(snapshot)).Msg("publishing event")

	for _, e := range snapshot {
		if err := invoke(e.handler, payload); err != nil {
			l.Warn().Err(err).Str(log.FieldEvent, event).Uint64("subscription", e.id).Msg("event handler failed")
		}
	}
}

// Count returns the number of handlers registered for event.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

func invoke(h Handler, payload string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in event handler: %v", r)
		}
	}()
	return h(payload)
}
