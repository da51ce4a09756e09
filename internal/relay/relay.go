// Package relay mirrors broker events to an external message broker.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/metrics"
	"github.com/vovakirdan/wiredm/internal/store"
)

// Routing keys used on the exchange.
const (
	RoutingNewMessage  = "chat.new_message"
	RoutingNewReaction = "chat.new_reaction"
)

// publishTimeout bounds a single publish so a stuck broker cannot stall the relay.
const publishTimeout = 5 * time.Second

// Envelope is the JSON body sent for every event.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Message    *store.Message  `json:"message,omitempty"`
	Reaction   *store.Reaction `json:"reaction,omitempty"`
}

// Relay is an internal, unfiltered subscriber that forwards every event.
type Relay struct {
	broker    *core.Broker
	publisher Publisher
	log       *zerolog.Logger
	metrics   *metrics.Metrics
}

// New creates a relay reading from broker and writing to publisher.
func New(broker *core.Broker, publisher Publisher, logger *zerolog.Logger, m *metrics.Metrics) *Relay {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Relay{broker: broker, publisher: publisher, log: logger, metrics: m}
}

// Run forwards events until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, topic := range []string{core.TopicNewMessage, core.TopicNewReaction} {
		feed := r.broker.Subscribe(ctx, topic)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.forward(ctx, feed)
		}()
	}
	wg.Wait()
}

func (r *Relay) forward(ctx context.Context, feed *core.Feed) {
	for ev := range feed.Events() {
		key, env := envelopeFor(ev)

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := r.publisher.Publish(pubCtx, key, env)
		cancel()

		if err != nil {
			r.metrics.IncRelayPublishError()
			r.log.Warn().Err(err).Str("routing_key", key).Msg("relay publish failed")
		}
	}
}

func envelopeFor(ev core.Event) (string, Envelope) {
	env := Envelope{Type: ev.Kind.String(), OccurredAt: time.Now().UTC()}
	if ev.Kind == core.EventNewReaction {
		env.Reaction = ev.Reaction
		return RoutingNewReaction, env
	}
	env.Message = ev.Message
	return RoutingNewMessage, env
}
