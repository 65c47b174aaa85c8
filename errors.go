package autosort

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("autosort: no store configured")
	ErrStoreClosed     = errors.New("autosort: store closed")
	ErrMigrationFailed = errors.New("autosort: migration failed")

	// Not found errors.
	ErrSiteNotFound     = errors.New("autosort: site not found")
	ErrReportNotFound   = errors.New("autosort: report not found")
	ErrScheduleNotFound = errors.New("autosort: schedule entry not found")

	// Conflict errors.
	ErrSortInProgress    = errors.New("autosort: sort already in progress for site")
	ErrDuplicateSchedule = errors.New("autosort: duplicate schedule entry")

	// Argument errors.
	ErrNilSite  = errors.New("autosort: nil site")
	ErrNilInput = errors.New("autosort: nil input container")
)
