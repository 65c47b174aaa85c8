package swp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Spiderbuttons/autosort"
	"github.com/Spiderbuttons/autosort/event"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/schedule"
)

// Trigger starts a sort of the named site and blocks until it finishes.
// The root Sorter implements this.
type Trigger interface {
	TriggerSort(ctx context.Context, site string) (*report.Report, error)
}

var _ Trigger = (*autosort.Sorter)(nil)

// Handler dispatches SWP frames to autosort operations. Report access
// goes through the report.Service facade so retention trimming and
// history share one code path with embedded users.
type Handler struct {
	trigger   Trigger
	reports   *report.Service
	schedules schedule.Store
	broker    *event.Broker
	logger    *slog.Logger
}

// NewHandler creates a new SWP method handler.
func NewHandler(trigger Trigger, reports *report.Service, schedules schedule.Store, broker *event.Broker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		trigger:   trigger,
		reports:   reports,
		schedules: schedules,
		broker:    broker,
		logger:    logger,
	}
}

// Handle processes a single SWP request frame and returns a response.
func (h *Handler) Handle(ctx context.Context, frame *Frame, conn *Connection) *Frame {
	switch frame.Method {
	case MethodSortTrigger:
		return h.handleSortTrigger(ctx, frame)
	case MethodReportGet:
		return h.handleReportGet(ctx, frame)
	case MethodReportList:
		return h.handleReportList(ctx, frame)
	case MethodReportTrim:
		return h.handleReportTrim(ctx, frame)
	case MethodSchedulePut:
		return h.handleSchedulePut(ctx, frame)
	case MethodScheduleList:
		return h.handleScheduleList(ctx, frame)
	case MethodScheduleDelete:
		return h.handleScheduleDelete(ctx, frame)
	case MethodSubscribe:
		return h.handleSubscribe(frame)
	case MethodUnsubscribe:
		return h.handleUnsubscribe(frame)
	case MethodStats:
		return h.handleStats(frame, conn)
	default:
		return NewErrorFrame(frame.ID, ErrCodeMethodNotFound, "unknown method: "+frame.Method)
	}
}

// mustResponseFrame creates a response frame, returning an error frame on marshal failure.
func mustResponseFrame(frameID string, data any) *Frame {
	resp, err := NewResponseFrame(frameID, data)
	if err != nil {
		return NewErrorFrame(frameID, ErrCodeInternal, "marshal response: "+err.Error())
	}
	return resp
}

func (h *Handler) handleSortTrigger(ctx context.Context, frame *Frame) *Frame {
	var req SortTriggerRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	if req.Site == "" {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "site is required")
	}

	r, err := h.trigger.TriggerSort(ctx, req.Site)
	if err != nil {
		switch {
		case errors.Is(err, autosort.ErrSiteNotFound):
			return NewErrorFrame(frame.ID, ErrCodeNotFound, "unknown site: "+req.Site)
		case errors.Is(err, autosort.ErrSortInProgress):
			return NewErrorFrame(frame.ID, ErrCodeConflict, "sort already in progress for site "+req.Site)
		default:
			return NewErrorFrame(frame.ID, ErrCodeInternal, "sort failed: "+err.Error())
		}
	}

	return mustResponseFrame(frame.ID, SortTriggerResponse{
		SortID:   r.SortID.String(),
		ReportID: r.ID.String(),
		Site:     r.Site,
		Drained:  r.Drained,
		Placed:   r.Placed,
		Leftover: r.Leftover,
	})
}

func (h *Handler) handleReportGet(ctx context.Context, frame *Frame) *Frame {
	var req ReportGetRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	reportID, err := id.ParseReportID(req.ReportID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid report ID: "+err.Error())
	}

	r, err := h.reports.Get(ctx, reportID)
	if err != nil {
		if errors.Is(err, autosort.ErrReportNotFound) {
			return NewErrorFrame(frame.ID, ErrCodeNotFound, "report not found")
		}
		return NewErrorFrame(frame.ID, ErrCodeInternal, "get report: "+err.Error())
	}

	return mustResponseFrame(frame.ID, r)
}

func (h *Handler) handleReportList(ctx context.Context, frame *Frame) *Frame {
	var req ReportListRequest
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
		}
	}

	reports, err := h.reports.History(ctx, req.Site, req.Limit)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeInternal, "list reports: "+err.Error())
	}

	return mustResponseFrame(frame.ID, reports)
}

func (h *Handler) handleReportTrim(ctx context.Context, frame *Frame) *Frame {
	var req ReportTrimRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	retention, err := time.ParseDuration(req.Retention)
	if err != nil || retention <= 0 {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid retention: "+req.Retention)
	}

	removed, err := h.reports.Trim(ctx, retention)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeInternal, "trim reports: "+err.Error())
	}

	return mustResponseFrame(frame.ID, ReportTrimResponse{Removed: removed})
}

func (h *Handler) handleSchedulePut(ctx context.Context, frame *Frame) *Frame {
	var req SchedulePutRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	if req.Name == "" || req.Site == "" {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "name and site are required")
	}

	sched, err := schedule.ParseExpr(req.Expr)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid schedule expression: "+err.Error())
	}

	now := time.Now().UTC()
	next := sched.Next(now)
	entry := &schedule.Entry{
		ID:        id.NewScheduleID(),
		Name:      req.Name,
		Site:      req.Site,
		Expr:      req.Expr,
		Enabled:   req.Enabled,
		NextRunAt: &next,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.schedules.PutSchedule(ctx, entry); err != nil {
		if errors.Is(err, autosort.ErrDuplicateSchedule) {
			return NewErrorFrame(frame.ID, ErrCodeConflict, "schedule name already exists: "+req.Name)
		}
		return NewErrorFrame(frame.ID, ErrCodeInternal, "put schedule: "+err.Error())
	}

	return mustResponseFrame(frame.ID, SchedulePutResponse{
		ScheduleID: entry.ID.String(),
		NextRunAt:  entry.NextRunAt,
	})
}

func (h *Handler) handleScheduleList(ctx context.Context, frame *Frame) *Frame {
	entries, err := h.schedules.ListSchedules(ctx)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeInternal, "list schedules: "+err.Error())
	}
	return mustResponseFrame(frame.ID, entries)
}

func (h *Handler) handleScheduleDelete(ctx context.Context, frame *Frame) *Frame {
	var req ScheduleDeleteRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	scheduleID, err := id.ParseScheduleID(req.ScheduleID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid schedule ID: "+err.Error())
	}

	if err := h.schedules.DeleteSchedule(ctx, scheduleID); err != nil {
		if errors.Is(err, autosort.ErrScheduleNotFound) {
			return NewErrorFrame(frame.ID, ErrCodeNotFound, "schedule not found")
		}
		return NewErrorFrame(frame.ID, ErrCodeInternal, "delete schedule: "+err.Error())
	}

	return mustResponseFrame(frame.ID, map[string]string{"status": "deleted"})
}

func (h *Handler) handleSubscribe(frame *Frame) *Frame {
	var req SubscribeRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	if err := event.ValidateTopic(req.Channel); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, err.Error())
	}

	// Actual subscription is done in the server loop after the response
	// is sent.
	return mustResponseFrame(frame.ID, map[string]string{
		"channel": req.Channel,
		"status":  "subscribed",
	})
}

func (h *Handler) handleUnsubscribe(frame *Frame) *Frame {
	var req UnsubscribeRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	// Actual unsubscription is done in the server loop after the response
	// is sent.
	return mustResponseFrame(frame.ID, map[string]string{
		"channel": req.Channel,
		"status":  "unsubscribed",
	})
}

func (h *Handler) handleStats(frame *Frame, conn *Connection) *Frame {
	stats := map[string]any{
		"broker": h.broker.Stats(),
	}
	if conn != nil {
		stats["subscriptions"] = conn.Subscriptions()
	}
	return mustResponseFrame(frame.ID, stats)
}
