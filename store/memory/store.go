// Package memory implements store.Store with in-process maps. It is the
// default backend for tests and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Spiderbuttons/autosort"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/schedule"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ report.Store   = (*Store)(nil)
	_ schedule.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	reports   map[string]*report.Report
	schedules map[string]*schedule.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		reports:   make(map[string]*report.Report),
		schedules: make(map[string]*schedule.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Report Store
// ──────────────────────────────────────────────────

// SaveReport persists a new report.
func (m *Store) SaveReport(_ context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	m.reports[r.ID.String()] = &cp
	return nil
}

// GetReport retrieves a report by ID.
func (m *Store) GetReport(_ context.Context, reportID id.ReportID) (*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[reportID.String()]
	if !ok {
		return nil, autosort.ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

// ListReports returns reports newest-first, optionally filtered by site.
func (m *Store) ListReports(_ context.Context, site string, limit int) ([]*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*report.Report, 0, len(m.reports))
	for _, r := range m.reports {
		if site != "" && r.Site != site {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	// Newest first.
	sort.Slice(result, func(i, k int) bool {
		return result[i].FinishedAt.After(result[k].FinishedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// CountReports returns the number of stored reports for a site.
func (m *Store) CountReports(_ context.Context, site string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if site == "" {
		return len(m.reports), nil
	}
	count := 0
	for _, r := range m.reports {
		if r.Site == site {
			count++
		}
	}
	return count, nil
}

// PurgeReports removes reports finished before the given time.
func (m *Store) PurgeReports(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, r := range m.reports {
		if r.FinishedAt.Before(before) {
			delete(m.reports, key)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Schedule Store
// ──────────────────────────────────────────────────

// PutSchedule persists a new schedule entry. Returns an error if the
// name already exists.
func (m *Store) PutSchedule(_ context.Context, entry *schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check for duplicate name.
	for _, e := range m.schedules {
		if e.Name == entry.Name {
			return autosort.ErrDuplicateSchedule
		}
	}

	cp := *entry
	m.schedules[entry.ID.String()] = &cp
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (m *Store) GetSchedule(_ context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.schedules[scheduleID.String()]
	if !ok {
		return nil, autosort.ErrScheduleNotFound
	}
	cp := *e
	return &cp, nil
}

// ListSchedules returns all schedule entries.
func (m *Store) ListSchedules(_ context.Context) ([]*schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*schedule.Entry, 0, len(m.schedules))
	for _, e := range m.schedules {
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	return result, nil
}

// UpdateSchedule updates a schedule entry (Enabled, NextRunAt, etc.).
func (m *Store) UpdateSchedule(_ context.Context, entry *schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ID.String()
	if _, ok := m.schedules[key]; !ok {
		return autosort.ErrScheduleNotFound
	}
	cp := *entry
	cp.UpdatedAt = time.Now().UTC()
	m.schedules[key] = &cp
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (m *Store) DeleteSchedule(_ context.Context, scheduleID id.ScheduleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scheduleID.String()
	if _, ok := m.schedules[key]; !ok {
		return autosort.ErrScheduleNotFound
	}
	delete(m.schedules, key)
	return nil
}
