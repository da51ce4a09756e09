package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/metrics"
	"github.com/vovakirdan/wiredm/internal/store"
)

// MessageLookup resolves the message a reaction belongs to.
type MessageLookup interface {
	GetMessageByID(ctx context.Context, id int64) (*store.Message, error)
}

// Filter decides whether a subscriber may see an event.
// Only the sender and the recipient of a message see it and its reactions.
type Filter struct {
	messages MessageLookup
	log      *zerolog.Logger
	metrics  *metrics.Metrics
}

// NewFilter creates a filter that resolves reaction owners through messages.
func NewFilter(messages MessageLookup, logger *zerolog.Logger, m *metrics.Metrics) *Filter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Filter{messages: messages, log: logger, metrics: m}
}

// Allow reports whether subscriber may receive ev. A failed lookup suppresses the event.
func (f *Filter) Allow(ctx context.Context, subscriber string, ev Event) bool {
	allowed := f.allow(ctx, subscriber, ev)
	f.metrics.Filtered(ev.Kind.Topic(), allowed)
	return allowed
}

var errMissingOwner = errors.New("owning message not returned")

func (f *Filter) allow(ctx context.Context, subscriber string, ev Event) bool {
	if subscriber == "" {
		return false
	}

	switch ev.Kind {
	case EventNewMessage:
		return ev.Message != nil && ev.Message.HasParticipant(subscriber)
	case EventNewReaction:
		if ev.Reaction == nil || f.messages == nil {
			return false
		}
		msg, err := f.messages.GetMessageByID(ctx, ev.Reaction.MessageID)
		if err == nil && msg == nil {
			err = errMissingOwner
		}
		if err != nil {
			f.log.Warn().
				Err(err).
				Int64("message_id", ev.Reaction.MessageID).
				Str("subscriber", subscriber).
				Msg("reaction owner lookup failed, event suppressed")
			return false
		}
		return msg.HasParticipant(subscriber)
	default:
		return false
	}
}
