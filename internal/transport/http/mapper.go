package http

import (
	"errors"

	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/proto"
)

// topicFromWire maps a client topic name to a broker topic.
func topicFromWire(name string) (string, bool) {
	switch name {
	case proto.TopicNewMessage:
		return core.TopicNewMessage, true
	case proto.TopicNewReaction:
		return core.TopicNewReaction, true
	default:
		return "", false
	}
}

func outboundFromEvent(subID string, ev core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			ID:    subID,
			Event: proto.TopicNewMessage,
			Data:  ev.Message,
		}
	case core.EventNewReaction:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			ID:    subID,
			Event: proto.TopicNewReaction,
			Data:  ev.Reaction,
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent, ID: subID}
	}
}

func outboundError(subID, code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		ID:    subID,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}

func outboundFromError(subID string, err error) proto.Outbound {
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr.Kind != core.KindInternal {
		return outboundError(subID, codeFor(coreErr.Kind), coreErr.Message)
	}
	return outboundError(subID, string(core.KindInternal), "internal error")
}
