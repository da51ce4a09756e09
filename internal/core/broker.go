package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/metrics"
)

// DefaultFeedBuffer is the per-feed queue length used when none is configured.
const DefaultFeedBuffer = 64

// Publisher is the write side of the broker.
type Publisher interface {
	Publish(topic string, ev Event)
}

// Broker is an in-process topic-keyed publish/subscribe hub.
// It keeps no history: a feed only sees events published after it subscribed.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]*topic

	buffer  int
	log     *zerolog.Logger
	metrics *metrics.Metrics
}

// NewBroker creates a broker whose feeds buffer up to buffer events.
func NewBroker(buffer int, logger *zerolog.Logger, m *metrics.Metrics) *Broker {
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broker{
		topics:  make(map[string]*topic),
		buffer:  buffer,
		log:     logger,
		metrics: m,
	}
}

// Publish hands ev to every feed currently subscribed to topicName.
// It never waits for consumers.
func (b *Broker) Publish(topicName string, ev Event) {
	b.metrics.Published(topicName)

	b.mu.RLock()
	t, ok := b.topics[topicName]
	dropped := 0
	if ok {
		dropped = t.broadcast(ev)
	}
	b.mu.RUnlock()

	for i := 0; i < dropped; i++ {
		b.metrics.Dropped(topicName)
	}
	if dropped > 0 {
		b.log.Debug().Str("topic", topicName).Int("dropped", dropped).Msg("slow subscriber, oldest event discarded")
	}
}

// Subscribe registers a new feed on topicName. The feed is closed and
// deregistered when ctx is done or Feed.Close is called.
func (b *Broker) Subscribe(ctx context.Context, topicName string) *Feed {
	feed := newFeed(topicName, b.buffer, b.remove)

	b.mu.Lock()
	t, ok := b.topics[topicName]
	if !ok {
		t = newTopic(topicName)
		b.topics[topicName] = t
	}
	t.add(feed)
	b.mu.Unlock()

	b.metrics.FeedAdded(topicName)

	go func() {
		select {
		case <-ctx.Done():
			feed.Close()
		case <-feed.done:
		}
	}()

	return feed
}

// Subscribers returns the number of feeds registered on topicName.
func (b *Broker) Subscribers(topicName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if t, ok := b.topics[topicName]; ok {
		return len(t.feeds)
	}
	return 0
}

func (b *Broker) remove(f *Feed) {
	b.mu.Lock()
	t, ok := b.topics[f.Topic]
	removed := ok && t.remove(f)
	if ok && t.empty() {
		delete(b.topics, f.Topic)
	}
	b.mu.Unlock()

	if removed {
		b.metrics.FeedRemoved(f.Topic)
	}
}
