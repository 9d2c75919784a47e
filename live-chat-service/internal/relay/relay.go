package relay

import (
	"context"
	"time"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/emitter"
	"github.com/weiawesome/wes-live-chat/pkg/log"
	"github.com/weiawesome/wes-live-chat/pkg/pubsub"
)

const (
	reconnectDelay = 2 * time.Second
	publishTimeout = 2 * time.Second
)

// Relay extends a local emitter.Bus across instances. Publish delivers to
// local subscribers first and then forwards the event to the shared
// channel; Run delivers events forwarded by other instances to the local Bus.
type Relay struct {
	bus        *emitter.Bus
	ps         pubsub.PubSub
	channel    string
	instanceID string
	doneCh     chan struct{}
}

// New creates a relay. instanceID must be unique per process.
func New(bus *emitter.Bus, ps pubsub.PubSub, channel, instanceID string) *Relay {
	if channel == "" {
		channel = pubsub.ChannelChatEvents
	}
	return &Relay{
		bus:        bus,
		ps:         ps,
		channel:    channel,
		instanceID: instanceID,
		doneCh:     make(chan struct{}),
	}
}

// Publish notifies local subscribers, then forwards the event to other
// instances in the background. Forwarding failures are logged only.
func (r *Relay) Publish(ctx context.Context, event, payload string) {
	r.bus.Publish(ctx, event, payload)

	l := log.Ctx(ctx)
	ev, err := pubsub.NewEvent(event, r.instanceID, payload)
	if err != nil {
		l.Error().Err(err).Str(log.FieldEvent, event).Msg("relay: failed to build event")
		return
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := r.ps.Publish(pubCtx, r.channel, ev); err != nil {
			l.Warn().Err(err).Str(log.FieldEvent, event).Msg("relay: forward failed")
		}
	}()
}

// Done returns a channel that is closed when Run exits.
func (r *Relay) Done() <-chan struct{} { return r.doneCh }

// Run receives forwarded events until ctx is done, resubscribing after
// connection loss.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.doneCh)
	ctx = log.WithStr(ctx, log.FieldInstance, r.instanceID)
	l := log.Ctx(ctx)

	for {
		err := r.runSubscription(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.Warn().Err(err).Str("channel", r.channel).Msg("relay subscription error, reconnecting in 2s")
		} else {
			l.Warn().Str("channel", r.channel).Msg("relay subscription closed, reconnecting in 2s")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (r *Relay) runSubscription(ctx context.Context) error {
	events, err := r.ps.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}

	for ev := range events {
		r.deliver(ctx, ev)
	}
	return nil
}

func (r *Relay) deliver(ctx context.Context, ev *pubsub.Event) {
	if ev.Origin == r.instanceID {
		return
	}

	var payload string
	if err := ev.UnmarshalPayload(&payload); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldEvent, ev.Type).Msg("relay: invalid payload")
		return
	}

	r.bus.Publish(ctx, ev.Type, payload)
}
