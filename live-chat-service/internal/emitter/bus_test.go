package emitter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(calls *[]string, name string) Handler {
	return func(payload string) error {
		*calls = append(*calls, name+":"+payload)
		return nil
	}
}

func TestPublishOrderAndIsolationByEvent(t *testing.T) {
	bus := New()
	var calls []string

	bus.Subscribe("message", recorder(&calls, "a"))
	bus.Subscribe("message", recorder(&calls, "b"))
	bus.Subscribe("other", recorder(&calls, "x"))
	bus.Subscribe("message", recorder(&calls, "c"))

	bus.Publish(context.Background(), "message", "42")

	assert.Equal(t, []string{"a:42", "b:42", "c:42"}, calls)
}

func TestPublishWithoutHandlers(t *testing.T) {
	bus := New()
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), "message", "1")
	})
}

func TestSameHandlerTwice(t *testing.T) {
	bus := New()
	var n int
	h := func(string) error { n++; return nil }

	first := bus.Subscribe("message", h)
	second := bus.Subscribe("message", h)

	bus.Publish(context.Background(), "message", "1")
	assert.Equal(t, 2, n)

	bus.Unsubscribe(first)
	bus.Publish(context.Background(), "message", "2")
	assert.Equal(t, 3, n)

	bus.Unsubscribe(second)
	bus.Publish(context.Background(), "message", "3")
	assert.Equal(t, 3, n)
}

func TestBalancedSubscribeUnsubscribe(t *testing.T) {
	for rounds := 1; rounds <= 5; rounds++ {
		bus := New()
		var n int
		h := func(string) error { n++; return nil }

		subs := make([]*Subscription, 0, rounds)
		for i := 0; i < rounds; i++ {
			subs = append(subs, bus.Subscribe("message", h))
		}
		for _, sub := range subs {
			bus.Unsubscribe(sub)
		}

		bus.Publish(context.Background(), "message", "1")
		assert.Zero(t, n, "rounds=%d", rounds)
		assert.Zero(t, bus.Count("message"))
	}
}

func TestUnsubscribeNoop(t *testing.T) {
	bus := New()
	other := New()
	foreign := other.Subscribe("message", func(string) error { return nil })

	kept := bus.Subscribe("message", func(string) error { return nil })

	assert.NotPanics(t, func() {
		bus.Unsubscribe(nil)
		bus.Unsubscribe(&Subscription{event: "message", id: 999})
		bus.Unsubscribe(&Subscription{event: "never", id: 1})
		bus.Unsubscribe(foreign)
	})

	bus.Unsubscribe(kept)
	bus.Unsubscribe(kept)
	assert.Zero(t, bus.Count("message"))
	assert.Equal(t, 1, other.Count("message"))
}

func TestUnsubscribeKeepsOthers(t *testing.T) {
	bus := New()
	var calls []string

	bus.Subscribe("message", recorder(&calls, "a"))
	b := bus.Subscribe("message", recorder(&calls, "b"))
	bus.Subscribe("message", recorder(&calls, "c"))

	bus.Unsubscribe(b)
	bus.Publish(context.Background(), "message", "7")

	assert.Equal(t, []string{"a:7", "c:7"}, calls)
	assert.Equal(t, "message", b.Event())
}

func TestFailingHandlersDoNotStopDispatch(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
	}{
		{"panic", func(string) error { panic("connection gone") }},
		{"nil map write", func(string) error {
			var m map[string]int
			m["x"] = 1
			return nil
		}},
		{"error", func(string) error { return errors.New("write failed") }},
		{"lagging", func(string) error { return ErrSubscriberLagging }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := New()
			var calls []string

			bus.Subscribe("message", recorder(&calls, "before"))
			bus.Subscribe("message", tt.handler)
			bus.Subscribe("message", recorder(&calls, "after"))

			require.NotPanics(t, func() {
				bus.Publish(context.Background(), "message", "9")
			})
			assert.Equal(t, []string{"before:9", "after:9"}, calls)
		})
	}
}

func TestSnapshotDuringPublish(t *testing.T) {
	bus := New()
	var calls []string
	var late *Subscription

	var self *Subscription
	self = bus.Subscribe("message", func(p string) error {
		calls = append(calls, "self:"+p)
		bus.Unsubscribe(self)
		late = bus.Subscribe("message", recorder(&calls, "late"))
		return nil
	})
	bus.Subscribe("message", recorder(&calls, "next"))

	bus.Publish(context.Background(), "message", "1")
	assert.Equal(t, []string{"self:1", "next:1"}, calls)

	calls = nil
	bus.Publish(context.Background(), "message", "2")
	assert.Equal(t, []string{"next:2", "late:2"}, calls)

	bus.Unsubscribe(late)
}

func TestLateSubscriberMissesEarlierPublish(t *testing.T) {
	bus := New()
	var calls []string

	bus.Publish(context.Background(), "message", "1")
	bus.Subscribe("message", recorder(&calls, "late"))

	assert.Empty(t, calls)

	bus.Publish(context.Background(), "message", "2")
	assert.Equal(t, []string{"late:2"}, calls)
}

func TestConcurrentSubscribePublish(t *testing.T) {
	bus := New()
	var delivered atomic.Int64
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sub := bus.Subscribe("message", func(string) error {
					delivered.Add(1)
					return nil
				})
				bus.Unsubscribe(sub)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(ctx, "message", "x")
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, bus.Count("message"))
}
