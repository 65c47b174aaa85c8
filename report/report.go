package report

import (
	"time"

	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/router"
)

// Report is the persistent record of one sort invocation: what was
// drained, where it landed, and what came back. Reports capture sort
// outcomes only; container contents are never persisted here.
type Report struct {
	ID     id.ReportID `json:"id"`
	SortID id.SortID   `json:"sort_id"`
	Site   string      `json:"site"`

	// Drained is the total units taken from the input container.
	Drained int `json:"drained"`

	// Placed is the total units that landed in destinations.
	Placed int `json:"placed"`

	// Leftover is the total units returned to the input container.
	Leftover int `json:"leftover"`

	// Placements lists every insert that landed, in execution order.
	Placements []router.Placement `json:"placements,omitempty"`

	// Leftovers are the stacks returned to the input container.
	Leftovers []item.Stack `json:"leftovers,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// New builds a Report from a routing result.
func New(sortID id.SortID, site string, res *router.Result, startedAt, finishedAt time.Time) *Report {
	return &Report{
		ID:         id.NewReportID(),
		SortID:     sortID,
		Site:       site,
		Drained:    res.Drained,
		Placed:     res.PlacedQty(),
		Leftover:   res.LeftoverQty(),
		Placements: res.Placements,
		Leftovers:  res.Leftovers,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
}

// Elapsed returns the sort's wall-clock duration.
func (r *Report) Elapsed() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Clean reports whether every drained unit found a destination.
func (r *Report) Clean() bool { return r.Leftover == 0 }
