package redis

import (
	"context"
	"fmt"

	"github.com/Spiderbuttons/autosort"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/schedule"
)

// PutSchedule persists a new schedule entry.
func (s *Store) PutSchedule(ctx context.Context, entry *schedule.Entry) error {
	eID := entry.ID.String()

	// Check for duplicate name.
	existing, err := s.rdb.HGet(ctx, scheduleNamesKey, entry.Name).Result()
	if err != nil && !isRedisNil(err) {
		return fmt.Errorf("autosort/redis: put schedule check name: %w", err)
	}
	if existing != "" {
		return autosort.ErrDuplicateSchedule
	}

	if setErr := s.setEntity(ctx, scheduleKey(eID), entry); setErr != nil {
		return fmt.Errorf("autosort/redis: put schedule set: %w", setErr)
	}

	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, scheduleIDsKey, eID)
	pipe.HSet(ctx, scheduleNamesKey, entry.Name, eID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosort/redis: put schedule indexes: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	var e schedule.Entry
	if err := s.getEntity(ctx, scheduleKey(scheduleID.String()), &e); err != nil {
		if isNotFound(err) {
			return nil, autosort.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("autosort/redis: get schedule: %w", err)
	}
	return &e, nil
}

// ListSchedules returns all schedule entries.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	ids, err := s.rdb.SMembers(ctx, scheduleIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("autosort/redis: list schedules: %w", err)
	}

	entries := make([]*schedule.Entry, 0, len(ids))
	for _, eID := range ids {
		var e schedule.Entry
		if getErr := s.getEntity(ctx, scheduleKey(eID), &e); getErr != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// UpdateSchedule updates a schedule entry.
func (s *Store) UpdateSchedule(ctx context.Context, entry *schedule.Entry) error {
	key := scheduleKey(entry.ID.String())
	exists, err := s.entityExists(ctx, key)
	if err != nil {
		return fmt.Errorf("autosort/redis: update schedule exists: %w", err)
	}
	if !exists {
		return autosort.ErrScheduleNotFound
	}

	entry.UpdatedAt = now()
	return s.setEntity(ctx, key, entry)
}

// DeleteSchedule removes a schedule entry by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	eID := scheduleID.String()
	key := scheduleKey(eID)

	// Get name for name index cleanup.
	var e schedule.Entry
	if err := s.getEntity(ctx, key, &e); err != nil {
		if isNotFound(err) {
			return autosort.ErrScheduleNotFound
		}
		return fmt.Errorf("autosort/redis: delete schedule get: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, scheduleIDsKey, eID)
	if e.Name != "" {
		pipe.HDel(ctx, scheduleNamesKey, e.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosort/redis: delete schedule: %w", err)
	}
	return nil
}
