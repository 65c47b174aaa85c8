package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/router"
	"github.com/Spiderbuttons/autosort/schedule"
)

// ── Report model ──────────────────────────────────────────────────

type reportModel struct {
	bun.BaseModel `bun:"table:autosort_reports"`

	ID         string    `bun:"id,pk"`
	SortID     string    `bun:"sort_id,notnull"`
	Site       string    `bun:"site,notnull,default:''"`
	Drained    int       `bun:"drained,notnull,default:0"`
	Placed     int       `bun:"placed,notnull,default:0"`
	Leftover   int       `bun:"leftover,notnull,default:0"`
	Placements []byte    `bun:"placements,type:jsonb"`
	Leftovers  []byte    `bun:"leftovers,type:jsonb"`
	StartedAt  time.Time `bun:"started_at,notnull"`
	FinishedAt time.Time `bun:"finished_at,notnull"`
}

func toReportModel(r *report.Report) (*reportModel, error) {
	var placements, leftovers []byte
	var err error

	if len(r.Placements) > 0 {
		placements, err = json.Marshal(r.Placements)
		if err != nil {
			return nil, fmt.Errorf("autosort/bun: marshal placements: %w", err)
		}
	}
	if len(r.Leftovers) > 0 {
		leftovers, err = json.Marshal(r.Leftovers)
		if err != nil {
			return nil, fmt.Errorf("autosort/bun: marshal leftovers: %w", err)
		}
	}

	return &reportModel{
		ID:         r.ID.String(),
		SortID:     r.SortID.String(),
		Site:       r.Site,
		Drained:    r.Drained,
		Placed:     r.Placed,
		Leftover:   r.Leftover,
		Placements: placements,
		Leftovers:  leftovers,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}, nil
}

func fromReportModel(m *reportModel) (*report.Report, error) {
	parsedID, err := id.ParseReportID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("autosort/bun: parse report id %q: %w", m.ID, err)
	}
	parsedSort, err := id.ParseSortID(m.SortID)
	if err != nil {
		return nil, fmt.Errorf("autosort/bun: parse sort id %q: %w", m.SortID, err)
	}

	r := &report.Report{
		ID:         parsedID,
		SortID:     parsedSort,
		Site:       m.Site,
		Drained:    m.Drained,
		Placed:     m.Placed,
		Leftover:   m.Leftover,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}

	if len(m.Placements) > 0 {
		var placements []router.Placement
		if err := json.Unmarshal(m.Placements, &placements); err != nil {
			return nil, fmt.Errorf("autosort/bun: unmarshal placements: %w", err)
		}
		r.Placements = placements
	}
	if len(m.Leftovers) > 0 {
		var leftovers []item.Stack
		if err := json.Unmarshal(m.Leftovers, &leftovers); err != nil {
			return nil, fmt.Errorf("autosort/bun: unmarshal leftovers: %w", err)
		}
		r.Leftovers = leftovers
	}

	return r, nil
}

// ── Schedule entry model ──────────────────────────────────────────

type scheduleEntryModel struct {
	bun.BaseModel `bun:"table:autosort_schedule_entries"`

	ID        string     `bun:"id,pk"`
	Name      string     `bun:"name,notnull"`
	Site      string     `bun:"site,notnull"`
	Expr      string     `bun:"expr,notnull"`
	Enabled   bool       `bun:"enabled,notnull,default:true"`
	LastRunAt *time.Time `bun:"last_run_at"`
	NextRunAt *time.Time `bun:"next_run_at"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toScheduleModel(e *schedule.Entry) *scheduleEntryModel {
	return &scheduleEntryModel{
		ID:        e.ID.String(),
		Name:      e.Name,
		Site:      e.Site,
		Expr:      e.Expr,
		Enabled:   e.Enabled,
		LastRunAt: e.LastRunAt,
		NextRunAt: e.NextRunAt,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func fromScheduleModel(m *scheduleEntryModel) (*schedule.Entry, error) {
	parsedID, err := id.ParseScheduleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("autosort/bun: parse schedule id %q: %w", m.ID, err)
	}

	return &schedule.Entry{
		ID:        parsedID,
		Name:      m.Name,
		Site:      m.Site,
		Expr:      m.Expr,
		Enabled:   m.Enabled,
		LastRunAt: m.LastRunAt,
		NextRunAt: m.NextRunAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}
