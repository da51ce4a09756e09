package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Hub joins the broker and the filter into per-identity subscriptions.
type Hub struct {
	broker *Broker
	filter *Filter
	log    *zerolog.Logger
}

// NewHub creates a new hub over broker and filter.
func NewHub(broker *Broker, filter *Filter, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{broker: broker, filter: filter, log: logger}
}

// Publish forwards to the broker.
func (h *Hub) Publish(topic string, ev Event) {
	h.broker.Publish(topic, ev)
}

// Subscribe opens a stream of topic events visible to identity.
// The stream is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, identity, topic string) (<-chan Event, error) {
	if identity == "" {
		return nil, ErrUnauthenticated
	}
	if !ValidTopic(topic) {
		return nil, InvalidArgument("unknown topic "+topic, nil)
	}

	feed := h.broker.Subscribe(ctx, topic)
	out := make(chan Event)

	go func() {
		defer close(out)
		defer feed.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-feed.Events():
				if !ok {
					return
				}
				if !h.filter.Allow(ctx, identity, ev) {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	h.log.Debug().Str("user", identity).Str("topic", topic).Msg("subscribed")
	return out, nil
}
