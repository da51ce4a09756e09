package core

import (
	"sync"
	"sync/atomic"
)

// Feed is one subscriber's view of a broker topic.
// It buffers up to a fixed number of events and discards the oldest when full.
type Feed struct {
	Topic string

	mu      sync.Mutex
	events  chan Event
	closed  bool
	dropped atomic.Uint64

	once   sync.Once
	done   chan struct{}
	detach func(*Feed)
}

func newFeed(topic string, buffer int, detach func(*Feed)) *Feed {
	if buffer < 1 {
		buffer = 1
	}
	return &Feed{
		Topic:  topic,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		detach: detach,
	}
}

// Events returns the receive side of the feed. It is closed after Close.
func (f *Feed) Events() <-chan Event {
	return f.events
}

// Dropped returns how many events were discarded because the consumer lagged.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

// Close deregisters the feed from its broker and closes the channel.
// Safe to call more than once.
func (f *Feed) Close() {
	f.once.Do(func() {
		if f.detach != nil {
			f.detach(f)
		}
		f.mu.Lock()
		f.closed = true
		close(f.events)
		f.mu.Unlock()
		close(f.done)
	})
}

// push enqueues ev without blocking. Reports whether an older event was discarded.
func (f *Feed) push(ev Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}

	// Only producers hold mu, so after one receive there is room for ev.
	dropped := false
	for {
		select {
		case f.events <- ev:
			return dropped
		default:
		}
		select {
		case <-f.events:
			dropped = true
			f.dropped.Add(1)
		default:
		}
	}
}
