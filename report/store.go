package report

import (
	"context"
	"time"

	"github.com/Spiderbuttons/autosort/id"
)

// Store is the persistence interface for sort reports.
// Backends implement it as part of the composite store.Store.
type Store interface {
	// SaveReport persists a new report.
	SaveReport(ctx context.Context, r *Report) error

	// GetReport returns a report by ID, or autosort.ErrReportNotFound.
	GetReport(ctx context.Context, reportID id.ReportID) (*Report, error)

	// ListReports returns reports newest-first, optionally filtered by
	// site (empty string means all sites). Zero limit means no limit.
	ListReports(ctx context.Context, site string, limit int) ([]*Report, error)

	// CountReports returns the number of stored reports for a site
	// (empty string means all sites).
	CountReports(ctx context.Context, site string) (int, error)

	// PurgeReports deletes reports finished before the cutoff and
	// returns how many were removed.
	PurgeReports(ctx context.Context, before time.Time) (int, error)
}
