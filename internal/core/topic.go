package core

// topic groups the feeds subscribed to the same broker topic.
// It is guarded by the broker's mutex.
type topic struct {
	name  string
	feeds map[*Feed]struct{}
}

func newTopic(name string) *topic {
	return &topic{
		name:  name,
		feeds: make(map[*Feed]struct{}),
	}
}

// add inserts a feed. Returns true if newly added.
func (t *topic) add(f *Feed) bool {
	if _, exists := t.feeds[f]; exists {
		return false
	}
	t.feeds[f] = struct{}{}
	return true
}

// remove deletes a feed. Returns true if removed.
func (t *topic) remove(f *Feed) bool {
	if _, exists := t.feeds[f]; !exists {
		return false
	}
	delete(t.feeds, f)
	return true
}

// broadcast offers ev to every feed and returns how many had to drop an older event.
func (t *topic) broadcast(ev Event) int {
	dropped := 0
	for f := range t.feeds {
		if f.push(ev) {
			dropped++
		}
	}
	return dropped
}

func (t *topic) empty() bool {
	return len(t.feeds) == 0
}
