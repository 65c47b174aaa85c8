package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Spiderbuttons/autosort"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/report"
)

// Reports marshal cleanly as JSON (IDs are TextMarshalers), so they are
// stored directly without an intermediate entity struct.

// SaveReport persists a new report and indexes it by finish time.
func (s *Store) SaveReport(ctx context.Context, r *report.Report) error {
	rID := r.ID.String()

	if err := s.setEntity(ctx, reportKey(rID), r); err != nil {
		return fmt.Errorf("autosort/redis: save report set: %w", err)
	}

	score := float64(r.FinishedAt.UnixNano())
	member := redis.Z{Score: score, Member: rID}

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, reportsKey, member)
	if r.Site != "" {
		pipe.ZAdd(ctx, siteReportsKey(r.Site), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosort/redis: save report indexes: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *Store) GetReport(ctx context.Context, reportID id.ReportID) (*report.Report, error) {
	var r report.Report
	if err := s.getEntity(ctx, reportKey(reportID.String()), &r); err != nil {
		if isNotFound(err) {
			return nil, autosort.ErrReportNotFound
		}
		return nil, fmt.Errorf("autosort/redis: get report: %w", err)
	}
	return &r, nil
}

// ListReports returns reports newest-first, optionally filtered by site.
func (s *Store) ListReports(ctx context.Context, site string, limit int) ([]*report.Report, error) {
	key := reportsKey
	if site != "" {
		key = siteReportsKey(site)
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.rdb.ZRevRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("autosort/redis: list reports: %w", err)
	}

	reports := make([]*report.Report, 0, len(ids))
	for _, rID := range ids {
		var r report.Report
		if getErr := s.getEntity(ctx, reportKey(rID), &r); getErr != nil {
			// Index entry without an entity; skip rather than fail the list.
			continue
		}
		reports = append(reports, &r)
	}
	return reports, nil
}

// CountReports returns the number of stored reports for a site.
func (s *Store) CountReports(ctx context.Context, site string) (int, error) {
	key := reportsKey
	if site != "" {
		key = siteReportsKey(site)
	}

	n, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("autosort/redis: count reports: %w", err)
	}
	return int(n), nil
}

// PurgeReports removes reports finished before the given time.
func (s *Store) PurgeReports(ctx context.Context, before time.Time) (int, error) {
	maxScore := strconv.FormatInt(before.UnixNano()-1, 10)

	ids, err := s.rdb.ZRangeByScore(ctx, reportsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("autosort/redis: purge reports range: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.rdb.TxPipeline()
	for _, rID := range ids {
		// Read each report for its site index before deleting.
		var r report.Report
		if getErr := s.getEntity(ctx, reportKey(rID), &r); getErr == nil && r.Site != "" {
			pipe.ZRem(ctx, siteReportsKey(r.Site), rID)
		}
		pipe.Del(ctx, reportKey(rID))
		pipe.ZRem(ctx, reportsKey, rID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("autosort/redis: purge reports: %w", err)
	}
	return len(ids), nil
}
