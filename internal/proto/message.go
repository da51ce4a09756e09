package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSubscribe   = "subscribe"
	InboundTypeUnsubscribe = "unsubscribe"

	OutboundTypeEvent        = "event"
	OutboundTypeError        = "error"
	OutboundTypeSubscribed   = "subscribed"
	OutboundTypeUnsubscribed = "unsubscribed"

	// Subscription topics as named on the wire.
	TopicNewMessage  = "newMessage"
	TopicNewReaction = "newReaction"
)

// SubscribeData opens (or, for unsubscribe, closes) a subscription.
// ID is chosen by the client and echoed on every related outbound frame.
type SubscribeData struct {
	ID    string `json:"id"`
	Topic string `json:"topic,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
