package report

import (
	"context"
	"time"

	"github.com/Spiderbuttons/autosort/id"
)

// Service provides high-level report operations over a Store.
type Service struct {
	store Store
}

// NewService creates a report service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record persists a report.
func (s *Service) Record(ctx context.Context, r *Report) error {
	return s.store.SaveReport(ctx, r)
}

// Get returns a report by ID.
func (s *Service) Get(ctx context.Context, reportID id.ReportID) (*Report, error) {
	return s.store.GetReport(ctx, reportID)
}

// History returns a site's reports, newest first.
func (s *Service) History(ctx context.Context, site string, limit int) ([]*Report, error) {
	return s.store.ListReports(ctx, site, limit)
}

// Trim deletes reports older than the retention window and returns how
// many were removed.
func (s *Service) Trim(ctx context.Context, retention time.Duration) (int, error) {
	return s.store.PurgeReports(ctx, time.Now().UTC().Add(-retention))
}

// ReportStore returns the underlying store for direct access.
func (s *Service) ReportStore() Store { return s.store }
