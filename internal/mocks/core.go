package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/store"
)

type PublisherMock struct {
	mock.Mock
}

var _ core.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) Publish(topic string, ev core.Event) {
	m.Called(topic, ev)
}

type MessageLookupMock struct {
	mock.Mock
}

var _ core.MessageLookup = (*MessageLookupMock)(nil)

func (m *MessageLookupMock) GetMessageByID(ctx context.Context, id int64) (*store.Message, error) {
	args := m.Called(ctx, id)
	var msg *store.Message
	if val := args.Get(0); val != nil {
		msg = val.(*store.Message)
	}
	return msg, args.Error(1)
}
