package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Spiderbuttons/autosort/ext"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/report"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Broker)(nil)
	_ ext.SortStarted      = (*Broker)(nil)
	_ ext.SortCompleted    = (*Broker)(nil)
	_ ext.SortFailed       = (*Broker)(nil)
	_ ext.StackPlaced      = (*Broker)(nil)
	_ ext.LeftoverReturned = (*Broker)(nil)
	_ ext.ScheduleFired    = (*Broker)(nil)
	_ ext.Shutdown         = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

// Broker is the real-time event broker. It implements the ext.Extension
// interface to receive lifecycle events and fans them out to subscribers
// via topic-based pub/sub.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	// Subscriber management.
	subscribers sync.Map // subscriberID -> *Subscriber

	// Metrics.
	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	// Config.
	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// NewBroker creates a new event broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "event-broker" }

// Topics returns the topic registry for external use (e.g., SWP server).
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize, b.defaultCredits)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// publish creates an event and broadcasts it to all matching topics.
func (b *Broker) publish(evt *Event) {
	topics := resolveTopics(evt)
	delivered, dropped := b.topics.Broadcast(topics, evt)
	b.totalPublished.Add(int64(delivered))
	b.totalDropped.Add(int64(dropped))
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("event: marshal event data: " + err.Error())
	}
	return data
}

// ── Sort lifecycle hooks ────────────────────────────

func (b *Broker) OnSortStarted(_ context.Context, sortID id.SortID, site string) error {
	b.publish(&Event{
		Type:      EventSortStarted,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic(sortID.String()),
		Site:      site,
		Data: mustMarshal(SortEventData{
			SortID: sortID.String(),
			Site:   site,
		}),
	})
	return nil
}

func (b *Broker) OnSortCompleted(_ context.Context, r *report.Report, elapsed time.Duration) error {
	b.publish(&Event{
		Type:      EventSortCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic(r.SortID.String()),
		Site:      r.Site,
		Data: mustMarshal(SortEventData{
			SortID:    r.SortID.String(),
			Site:      r.Site,
			Drained:   r.Drained,
			Placed:    r.Placed,
			Leftover:  r.Leftover,
			ElapsedMs: elapsed.Milliseconds(),
		}),
	})
	return nil
}

func (b *Broker) OnSortFailed(_ context.Context, sortID id.SortID, site string, sortErr error) error {
	b.publish(&Event{
		Type:      EventSortFailed,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic(sortID.String()),
		Site:      site,
		Data: mustMarshal(SortEventData{
			SortID: sortID.String(),
			Site:   site,
			Error:  sortErr.Error(),
		}),
	})
	return nil
}

// ── Routing hooks ───────────────────────────────────

func (b *Broker) OnStackPlaced(_ context.Context, sortID id.SortID, st item.Stack, dest id.ContainerID) error {
	b.publish(&Event{
		Type:      EventStackPlaced,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic(sortID.String()),
		Data: mustMarshal(PlacementEventData{
			SortID:      sortID.String(),
			ItemName:    st.Name,
			Tag:         st.Tag(),
			Qty:         st.Qty,
			ContainerID: dest.String(),
		}),
	})
	return nil
}

func (b *Broker) OnLeftoverReturned(_ context.Context, sortID id.SortID, stacks []item.Stack) error {
	b.publish(&Event{
		Type:      EventLeftoverReturned,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic(sortID.String()),
		Data: mustMarshal(LeftoverEventData{
			SortID:   sortID.String(),
			Stacks:   len(stacks),
			TotalQty: item.TotalQty(stacks),
		}),
	})
	return nil
}

// ── Schedule lifecycle hooks ────────────────────────

func (b *Broker) OnScheduleFired(_ context.Context, entryName string, sortID id.SortID) error {
	b.publish(&Event{
		Type:      EventScheduleFired,
		Timestamp: time.Now().UTC(),
		Data: mustMarshal(ScheduleEventData{
			EntryName: entryName,
			SortID:    sortID.String(),
		}),
	})
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("event broker shut down")
	return nil
}
