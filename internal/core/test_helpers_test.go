package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wiredm/internal/store"
)

func mustEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed while waiting for %v", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return Event{}
		}
	}
}

func mustNoEvent(t *testing.T, ch <-chan Event, wait time.Duration) {
	t.Helper()

	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(wait):
	}
}

// fakeMessages is an in-memory MessageLookup.
type fakeMessages struct {
	mu   sync.Mutex
	byID map[int64]*store.Message
}

func newFakeMessages(msgs ...*store.Message) *fakeMessages {
	f := &fakeMessages{byID: make(map[int64]*store.Message)}
	for _, m := range msgs {
		f.byID[m.ID] = m
	}
	return f
}

func (f *fakeMessages) GetMessageByID(_ context.Context, id int64) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, errors.New("message vanished")
	}
	return m, nil
}

func messageEvent(id int64, from, to, content string) Event {
	return Event{Kind: EventNewMessage, Message: &store.Message{ID: id, From: from, To: to, Content: content}}
}

func reactionEvent(messageID int64, username, content string) Event {
	return Event{Kind: EventNewReaction, Reaction: &store.Reaction{MessageID: messageID, Username: username, Content: content}}
}
