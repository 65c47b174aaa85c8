package schedule

import (
	"time"

	"github.com/Spiderbuttons/autosort/id"
)

// Entry represents a scheduled automatic sort of one site.
type Entry struct {
	ID id.ScheduleID `json:"id"`

	// Name is the unique human-readable identifier for this entry.
	Name string `json:"name"`

	// Site is the site to sort when the entry fires.
	Site string `json:"site"`

	// Expr is a cron expression (e.g., "*/5 * * * *" or "@every 30s").
	Expr string `json:"expr"`

	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
