// Package event provides a real-time broker for autosort lifecycle events.
// It bridges the ext.Extension system to connected clients via topic-based
// pub/sub.
package event

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Sort events.
	EventSortStarted   EventType = "sort.started"
	EventSortCompleted EventType = "sort.completed"
	EventSortFailed    EventType = "sort.failed"

	// Routing events.
	EventStackPlaced      EventType = "sort.stack_placed"
	EventLeftoverReturned EventType = "sort.leftover_returned"

	// Schedule events.
	EventScheduleFired EventType = "schedule.fired"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the channel this event was published on.
	Topic string `json:"topic"`

	// Site is the site the event belongs to, if any.
	Site string `json:"site,omitempty"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// SortEventData is the payload for sort lifecycle events.
type SortEventData struct {
	SortID    string `json:"sort_id"`
	Site      string `json:"site"`
	Drained   int    `json:"drained,omitempty"`
	Placed    int    `json:"placed,omitempty"`
	Leftover  int    `json:"leftover,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PlacementEventData is the payload for stack placement events.
type PlacementEventData struct {
	SortID      string `json:"sort_id"`
	ItemName    string `json:"item_name"`
	Tag         string `json:"tag"`
	Qty         int    `json:"qty"`
	ContainerID string `json:"container_id"`
}

// LeftoverEventData is the payload for leftover return events.
type LeftoverEventData struct {
	SortID   string `json:"sort_id"`
	Stacks   int    `json:"stacks"`
	TotalQty int    `json:"total_qty"`
}

// ScheduleEventData is the payload for schedule lifecycle events.
type ScheduleEventData struct {
	EntryName string `json:"entry_name"`
	SortID    string `json:"sort_id"`
}
