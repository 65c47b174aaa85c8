package schedule

import (
	"context"

	"github.com/Spiderbuttons/autosort/id"
)

// Store defines the persistence contract for schedule entries.
// Backends implement it as part of the composite store.Store.
type Store interface {
	// PutSchedule persists a new entry. Returns an error if the name
	// already exists.
	PutSchedule(ctx context.Context, entry *Entry) error

	// GetSchedule retrieves an entry by ID, or autosort.ErrScheduleNotFound.
	GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*Entry, error)

	// ListSchedules returns all entries.
	ListSchedules(ctx context.Context) ([]*Entry, error)

	// UpdateSchedule updates an entry (Enabled, NextRunAt, etc.).
	UpdateSchedule(ctx context.Context, entry *Entry) error

	// DeleteSchedule removes an entry by ID.
	DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error
}
