package event

import (
	"sync"
	"sync/atomic"
)

// Subscriber is one consumer of the broker's fan-out, typically backing
// a single SWP connection. Delivery is credit-based: each delivered
// event costs one credit, and the broker skips a subscriber whose
// credits are exhausted until the peer replenishes them with a credit
// frame. Delivery never blocks; an event that finds no credit or a full
// buffer is dropped and counted.
type Subscriber struct {
	id string
	ch chan *Event

	credits   atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64

	mu     sync.RWMutex
	topics map[string]struct{}

	closed atomic.Bool
}

// SubscriberStats is a point-in-time snapshot of one subscriber's
// delivery accounting.
type SubscriberStats struct {
	ID        string   `json:"id"`
	Topics    []string `json:"topics"`
	Credits   int64    `json:"credits"`
	Delivered int64    `json:"delivered"`
	Dropped   int64    `json:"dropped"`
}

// NewSubscriber creates a subscriber with the given buffer size and
// initial credits.
func NewSubscriber(id string, bufferSize int, initialCredits int64) *Subscriber {
	s := &Subscriber{
		id:     id,
		ch:     make(chan *Event, bufferSize),
		topics: make(map[string]struct{}),
	}
	s.credits.Store(initialCredits)
	return s
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the read-only event channel.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// AddCredits replenishes flow-control credits.
func (s *Subscriber) AddCredits(n int64) { s.credits.Add(n) }

// Credits returns the current credit count.
func (s *Subscriber) Credits() int64 { return s.credits.Load() }

// Delivered returns how many events reached this subscriber's channel.
func (s *Subscriber) Delivered() int64 { return s.delivered.Load() }

// Dropped returns how many events were lost to exhausted credits or a
// full buffer.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// Stats returns a snapshot of the subscriber's state.
func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		ID:        s.id,
		Topics:    s.Topics(),
		Credits:   s.credits.Load(),
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// addTopic records that this subscriber is on the given topic.
func (s *Subscriber) addTopic(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

// removeTopic removes a topic from the subscriber's tracked set.
func (s *Subscriber) removeTopic(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// Topics returns a copy of all subscribed topic names.
func (s *Subscriber) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

// send attempts to deliver an event. A delivery costs one credit; the
// credit is refunded when the buffer turns out to be full, since the
// peer never sees the event. Returns false on any drop.
func (s *Subscriber) send(evt *Event) bool {
	if s.closed.Load() {
		return false
	}

	for {
		current := s.credits.Load()
		if current <= 0 {
			s.dropped.Add(1)
			return false
		}
		if s.credits.CompareAndSwap(current, current-1) {
			break
		}
	}

	select {
	case s.ch <- evt:
		s.delivered.Add(1)
		return true
	default:
		s.credits.Add(1)
		s.dropped.Add(1)
		return false
	}
}

// Close closes the subscriber channel. Safe to call multiple times.
func (s *Subscriber) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
