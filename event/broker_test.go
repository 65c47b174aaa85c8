package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBrokerSubscribeAndPublish(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	sub := b.Subscribe("sub-1", TopicSorts)

	evt := &Event{
		Type:      EventSortStarted,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic("sort-123"),
		Data:      json.RawMessage(`{"sort_id":"sort-123"}`),
	}
	b.publish(evt)

	// Event should arrive on the subscriber channel.
	select {
	case received := <-sub.C():
		if received.Type != EventSortStarted {
			t.Errorf("Type = %q, want %q", received.Type, EventSortStarted)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerSiteTopics(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	// Subscribe to one site only.
	sub := b.Subscribe("site-sub", SiteTopic("base"))

	// Publish a sort event for that site.
	evt := &Event{
		Type:      EventSortCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic("sort-abc"),
		Site:      "base",
		Data:      json.RawMessage(`{}`),
	}
	b.publish(evt)

	select {
	case received := <-sub.C():
		if received.Site != "base" {
			t.Errorf("Site = %q, want %q", received.Site, "base")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for site event")
	}

	// Event for a different site should NOT arrive.
	evt2 := &Event{
		Type:      EventSortCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic("sort-def"),
		Site:      "outpost",
		Data:      json.RawMessage(`{}`),
	}
	b.publish(evt2)

	select {
	case <-sub.C():
		t.Fatal("should not receive event for a different site")
	case <-time.After(50 * time.Millisecond):
		// ok, no event
	}
}

func TestBrokerMultipleTopics(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	// Subscribe to firehose, should get everything.
	firehose := b.Subscribe("firehose-sub", TopicFirehose)

	// Subscribe to just sorts.
	sortsSub := b.Subscribe("sorts-sub", TopicSorts)

	evt := &Event{
		Type:      EventSortCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic("sort-456"),
		Data:      json.RawMessage(`{}`),
	}
	b.publish(evt)

	// Both should receive the event.
	for _, sub := range []*Subscriber{firehose, sortsSub} {
		select {
		case <-sub.C():
			// ok
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s timed out", sub.ID())
		}
	}
}

func TestBrokerHooksPublish(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("hook-sub", TopicFirehose)

	ctx := context.Background()
	sortID := id.NewSortID()

	if err := b.OnSortStarted(ctx, sortID, "base"); err != nil {
		t.Fatalf("OnSortStarted: %v", err)
	}
	if err := b.OnStackPlaced(ctx, sortID, item.Stack{Name: "apple", Category: "food", Qty: 3}, id.NewContainerID()); err != nil {
		t.Fatalf("OnStackPlaced: %v", err)
	}
	if err := b.OnLeftoverReturned(ctx, sortID, []item.Stack{{Name: "rock", CategoryNum: 7, Qty: 5}}); err != nil {
		t.Fatalf("OnLeftoverReturned: %v", err)
	}
	if err := b.OnScheduleFired(ctx, "nightly", sortID); err != nil {
		t.Fatalf("OnScheduleFired: %v", err)
	}

	wantTypes := []EventType{EventSortStarted, EventStackPlaced, EventLeftoverReturned, EventScheduleFired}
	for _, want := range wantTypes {
		select {
		case received := <-sub.C():
			if received.Type != want {
				t.Errorf("Type = %q, want %q", received.Type, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	sub := b.Subscribe("sub-rm", TopicFirehose)

	// Remove subscriber.
	b.RemoveSubscriber("sub-rm")

	evt := &Event{
		Type:      EventSortStarted,
		Timestamp: time.Now().UTC(),
		Topic:     SortTopic("s1"),
		Data:      json.RawMessage(`{}`),
	}
	b.publish(evt)

	// Channel should be closed.
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("channel should be closed after RemoveSubscriber")
		}
	case <-time.After(100 * time.Millisecond):
		// ok
	}
}

func TestBrokerStats(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	_ = b.Subscribe("s1", TopicSorts)
	_ = b.Subscribe("s2", SiteTopic("base"), TopicFirehose)

	stats := b.Stats()
	if stats.SubscriberCount != 2 {
		t.Errorf("SubscriberCount = %d, want 2", stats.SubscriberCount)
	}
	if stats.TopicCount < 2 {
		t.Errorf("TopicCount = %d, want >= 2", stats.TopicCount)
	}
}

func TestSubscriberCredits(t *testing.T) {
	t.Parallel()

	sub := NewSubscriber("credit-sub", 10, 2)

	evt := &Event{Type: EventSortStarted, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}

	// Should accept 2 events (initial credits).
	if !sub.send(evt) {
		t.Fatal("first send should succeed")
	}
	if !sub.send(evt) {
		t.Fatal("second send should succeed")
	}

	// Third should fail: no credits.
	if sub.send(evt) {
		t.Fatal("third send should fail (no credits)")
	}

	// Replenish credits.
	sub.AddCredits(5)
	if sub.Credits() != 5 {
		t.Errorf("Credits = %d, want 5", sub.Credits())
	}

	if !sub.send(evt) {
		t.Fatal("send after credit replenishment should succeed")
	}
}

func TestSubscriberAccounting(t *testing.T) {
	t.Parallel()

	// Buffer of 1 with plenty of credits: the second send hits a full
	// buffer, drops, and refunds its credit.
	sub := NewSubscriber("acct-sub", 1, 10)
	evt := &Event{Type: EventSortStarted, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}

	if !sub.send(evt) {
		t.Fatal("first send should succeed")
	}
	if sub.send(evt) {
		t.Fatal("second send should drop on a full buffer")
	}

	stats := sub.Stats()
	if stats.Delivered != 1 {
		t.Errorf("Delivered = %d, want 1", stats.Delivered)
	}
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
	if stats.Credits != 9 {
		t.Errorf("Credits = %d, want 9 (full-buffer drop refunds its credit)", stats.Credits)
	}
}

func TestBrokerCountsDrops(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), WithDefaultCredits(1))
	_ = b.Subscribe("starved", TopicFirehose)

	evt := &Event{Type: EventSortStarted, Timestamp: time.Now().UTC(), Topic: SortTopic("s1"), Data: json.RawMessage(`{}`)}
	b.publish(evt) // consumes the only credit
	b.publish(evt) // dropped

	stats := b.Stats()
	if stats.TotalPublished != 1 {
		t.Errorf("TotalPublished = %d, want 1", stats.TotalPublished)
	}
	if stats.TotalDropped != 1 {
		t.Errorf("TotalDropped = %d, want 1", stats.TotalDropped)
	}
}

func TestTopicValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic string
		valid bool
	}{
		{TopicSorts, true},
		{TopicFirehose, true},
		{"sort:sort-123", true},
		{"site:base", true},
		{"invalid", false},
		{"unknown:entity", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			err := ValidateTopic(tt.topic)
			if tt.valid && err != nil {
				t.Errorf("ValidateTopic(%q) returned error: %v", tt.topic, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateTopic(%q) should return error", tt.topic)
			}
		})
	}
}

func TestTopicRegistry(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()

	sub1 := NewSubscriber("s1", 10, 100)
	sub2 := NewSubscriber("s2", 10, 100)

	tr.Subscribe("topic-a", sub1)
	tr.Subscribe("topic-a", sub2)
	tr.Subscribe("topic-b", sub1)

	if tr.TopicCount() != 2 {
		t.Errorf("TopicCount = %d, want 2", tr.TopicCount())
	}
	if tr.SubscriberCount("topic-a") != 2 {
		t.Errorf("SubscriberCount(topic-a) = %d, want 2", tr.SubscriberCount("topic-a"))
	}

	// Unsubscribe s2 from topic-a.
	tr.Unsubscribe("topic-a", "s2")
	if tr.SubscriberCount("topic-a") != 1 {
		t.Errorf("SubscriberCount(topic-a) = %d, want 1", tr.SubscriberCount("topic-a"))
	}

	// UnsubscribeAll for s1.
	tr.UnsubscribeAll("s1")
	if tr.TopicCount() != 0 {
		t.Errorf("TopicCount after UnsubscribeAll = %d, want 0", tr.TopicCount())
	}
}

func TestBroadcastDeduplication(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()
	sub := NewSubscriber("dedup-sub", 10, 100)

	// Subscribe to multiple topics.
	tr.Subscribe("topic-x", sub)
	tr.Subscribe("topic-y", sub)

	evt := &Event{Type: EventSortStarted, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}

	delivered, dropped := tr.Broadcast([]string{"topic-x", "topic-y"}, evt)
	if delivered != 1 {
		t.Errorf("Broadcast delivered to %d subscribers, want 1 (deduplicated)", delivered)
	}
	if dropped != 0 {
		t.Errorf("Broadcast dropped %d, want 0", dropped)
	}
}

func TestResolveTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		evt      *Event
		expected []string
	}{
		{
			evt:      &Event{Type: EventSortStarted, Topic: "sort:s1", Site: "base"},
			expected: []string{TopicFirehose, TopicSorts, "site:base", "sort:s1"},
		},
		{
			evt:      &Event{Type: EventStackPlaced, Topic: "sort:s2"},
			expected: []string{TopicFirehose, TopicSorts, "sort:s2"},
		},
		{
			evt:      &Event{Type: EventScheduleFired, Topic: ""},
			expected: []string{TopicFirehose},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.evt.Type), func(t *testing.T) {
			topics := resolveTopics(tt.evt)
			if len(topics) != len(tt.expected) {
				t.Errorf("got %d topics, want %d: %v", len(topics), len(tt.expected), topics)
				return
			}
			for i, topic := range topics {
				if topic != tt.expected[i] {
					t.Errorf("topic[%d] = %q, want %q", i, topic, tt.expected[i])
				}
			}
		})
	}
}
