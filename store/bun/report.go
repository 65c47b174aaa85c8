package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Spiderbuttons/autosort"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/report"
)

// SaveReport persists a new report.
func (s *Store) SaveReport(ctx context.Context, r *report.Report) error {
	m, err := toReportModel(r)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("autosort/bun: save report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *Store) GetReport(ctx context.Context, reportID id.ReportID) (*report.Report, error) {
	m := new(reportModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", reportID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, autosort.ErrReportNotFound
		}
		return nil, fmt.Errorf("autosort/bun: get report: %w", err)
	}
	return fromReportModel(m)
}

// ListReports returns reports newest-first, optionally filtered by site.
func (s *Store) ListReports(ctx context.Context, site string, limit int) ([]*report.Report, error) {
	var models []reportModel
	q := s.db.NewSelect().Model(&models).
		Order("finished_at DESC")
	if site != "" {
		q = q.Where("site = ?", site)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("autosort/bun: list reports: %w", err)
	}

	reports := make([]*report.Report, 0, len(models))
	for i := range models {
		r, convErr := fromReportModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("autosort/bun: list reports convert: %w", convErr)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// CountReports returns the number of stored reports for a site.
func (s *Store) CountReports(ctx context.Context, site string) (int, error) {
	q := s.db.NewSelect().Model((*reportModel)(nil))
	if site != "" {
		q = q.Where("site = ?", site)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("autosort/bun: count reports: %w", err)
	}
	return count, nil
}

// PurgeReports removes reports finished before the given time.
func (s *Store) PurgeReports(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.NewDelete().
		Model((*reportModel)(nil)).
		Where("finished_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("autosort/bun: purge reports: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return int(rows), nil
}
