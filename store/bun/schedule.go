package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Spiderbuttons/autosort"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/schedule"
)

// PutSchedule persists a new schedule entry. Returns an error if the name
// already exists.
func (s *Store) PutSchedule(ctx context.Context, entry *schedule.Entry) error {
	m := toScheduleModel(entry)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return autosort.ErrDuplicateSchedule
		}
		return fmt.Errorf("autosort/bun: put schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	m := new(scheduleEntryModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", scheduleID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, autosort.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("autosort/bun: get schedule: %w", err)
	}
	return fromScheduleModel(m)
}

// ListSchedules returns all schedule entries.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	var models []scheduleEntryModel
	err := s.db.NewSelect().Model(&models).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("autosort/bun: list schedules: %w", err)
	}

	entries := make([]*schedule.Entry, 0, len(models))
	for i := range models {
		e, convErr := fromScheduleModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("autosort/bun: list schedules convert: %w", convErr)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpdateSchedule updates a schedule entry (Enabled, NextRunAt, etc.).
func (s *Store) UpdateSchedule(ctx context.Context, entry *schedule.Entry) error {
	m := toScheduleModel(entry)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("autosort/bun: update schedule: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return autosort.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	res, err := s.db.NewDelete().
		Model((*scheduleEntryModel)(nil)).
		Where("id = ?", scheduleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("autosort/bun: delete schedule: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return autosort.ErrScheduleNotFound
	}
	return nil
}
