package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vovakirdan/wiredm/internal/relay"
)

type RelayPublisherMock struct {
	mock.Mock
}

var _ relay.Publisher = (*RelayPublisherMock)(nil)

func (m *RelayPublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *RelayPublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
