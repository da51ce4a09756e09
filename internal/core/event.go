package core

import "github.com/vovakirdan/wiredm/internal/store"

// Broker topics.
const (
	TopicNewMessage  = "NEW_MESSAGE"
	TopicNewReaction = "NEW_REACTION"
)

// EventKind is a notification the core emits to subscribers.
type EventKind int

const (
	// EventNewMessage carries a freshly sent message.
	EventNewMessage EventKind = iota
	// EventNewReaction carries a created or updated reaction.
	EventNewReaction
)

func (k EventKind) String() string {
	switch k {
	case EventNewMessage:
		return "new_message"
	case EventNewReaction:
		return "new_reaction"
	default:
		return "unknown"
	}
}

// Topic returns the broker topic events of this kind are published on.
func (k EventKind) Topic() string {
	if k == EventNewReaction {
		return TopicNewReaction
	}
	return TopicNewMessage
}

// Event is published on the broker to describe what happened in the system.
// Exactly one of Message or Reaction is set, matching Kind.
type Event struct {
	Kind     EventKind
	Message  *store.Message
	Reaction *store.Reaction
}

// ValidTopic reports whether topic is one the broker serves.
func ValidTopic(topic string) bool {
	return topic == TopicNewMessage || topic == TopicNewReaction
}
