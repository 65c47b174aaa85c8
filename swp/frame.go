// Package swp implements the Sort Wire Protocol (SWP), a frame-based
// protocol for remote control of an autosort instance. SWP is transported
// over WebSocket: clients authenticate, trigger sorts, query reports,
// manage schedules, and subscribe to live event topics.
package swp

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"
)

// FrameType identifies the frame category.
type FrameType string

const (
	FrameRequest  FrameType = "request"
	FrameResponse FrameType = "response"
	FrameEvent    FrameType = "event"
	FrameErr      FrameType = "error"
	FramePing     FrameType = "ping"
	FramePong     FrameType = "pong"
)

// Frame is the SWP message envelope. Every message exchanged over the
// protocol is a Frame.
type Frame struct {
	// ID uniquely identifies this frame.
	ID string `json:"id" msgpack:"id"`

	// Type categorizes the frame.
	Type FrameType `json:"type" msgpack:"type"`

	// Method names the operation for request frames (e.g., "sort.trigger").
	Method string `json:"method,omitempty" msgpack:"method,omitempty"`

	// CorrelID links a response to its originating request.
	CorrelID string `json:"correl_id,omitempty" msgpack:"correl_id,omitempty"`

	// Token carries auth credentials (typically only on the auth frame).
	Token string `json:"token,omitempty" msgpack:"token,omitempty"`

	// Data carries the method-specific payload.
	Data json.RawMessage `json:"data,omitempty" msgpack:"data,omitempty"`

	// Error carries error details for error frames.
	Error *ErrorDetail `json:"error,omitempty" msgpack:"error,omitempty"`

	// Channel identifies the subscription topic for event/subscribe frames.
	Channel string `json:"channel,omitempty" msgpack:"channel,omitempty"`

	// Credits replenishes flow-control credits (backpressure).
	Credits int `json:"credits,omitempty" msgpack:"credits,omitempty"`

	// Timestamp records when this frame was created.
	Timestamp time.Time `json:"ts" msgpack:"ts"`
}

// ErrorDetail describes an error in a response or error frame.
type ErrorDetail struct {
	Code    int    `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
	Details string `json:"details,omitempty" msgpack:"details,omitempty"`
}

// ── Well-known methods ──────────────────────────────

const (
	// Auth methods.
	MethodAuth = "auth"

	// Sort methods.
	MethodSortTrigger = "sort.trigger"

	// Report methods. Trimming requires the admin scope.
	MethodReportGet  = "report.get"
	MethodReportList = "report.list"
	MethodReportTrim = "report.trim"

	// Schedule methods.
	MethodSchedulePut    = "schedule.put"
	MethodScheduleList   = "schedule.list"
	MethodScheduleDelete = "schedule.delete"

	// Subscription methods.
	MethodSubscribe   = "subscribe"
	MethodUnsubscribe = "unsubscribe"

	// Admin methods.
	MethodStats = "stats"
)

// ── Well-known error codes ──────────────────────────

const (
	ErrCodeBadRequest     = 400
	ErrCodeUnauthorized   = 401
	ErrCodeForbidden      = 403
	ErrCodeNotFound       = 404
	ErrCodeMethodNotFound = 405
	ErrCodeConflict       = 409
	ErrCodeInternal       = 500
)

// ── Request/Response payloads ───────────────────────

// AuthRequest is sent by clients as the first frame to authenticate.
type AuthRequest struct {
	Token  string `json:"token"`
	Format string `json:"format,omitempty"` // "json" (default) or "msgpack"
}

// AuthResponse is returned after successful authentication.
type AuthResponse struct {
	Format    string `json:"format"`
	SessionID string `json:"session_id"`
}

// SortTriggerRequest asks the server to sort a site now.
type SortTriggerRequest struct {
	Site string `json:"site"`
}

// SortTriggerResponse summarizes the finished sort.
type SortTriggerResponse struct {
	SortID   string `json:"sort_id"`
	ReportID string `json:"report_id"`
	Site     string `json:"site"`
	Drained  int    `json:"drained"`
	Placed   int    `json:"placed"`
	Leftover int    `json:"leftover"`
}

// ReportGetRequest retrieves a report by ID.
type ReportGetRequest struct {
	ReportID string `json:"report_id"`
}

// ReportListRequest lists reports, newest first.
type ReportListRequest struct {
	Site  string `json:"site,omitempty"`  // empty = all sites
	Limit int    `json:"limit,omitempty"` // 0 = no limit
}

// ReportTrimRequest removes reports finished longer than the retention
// window ago. Retention is a Go duration string, e.g. "720h".
type ReportTrimRequest struct {
	Retention string `json:"retention"`
}

// ReportTrimResponse reports how many entries were removed.
type ReportTrimResponse struct {
	Removed int `json:"removed"`
}

// SchedulePutRequest registers a new schedule entry.
type SchedulePutRequest struct {
	Name    string `json:"name"`
	Site    string `json:"site"`
	Expr    string `json:"expr"`
	Enabled bool   `json:"enabled"`
}

// SchedulePutResponse confirms schedule creation.
type SchedulePutResponse struct {
	ScheduleID string     `json:"schedule_id"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
}

// ScheduleDeleteRequest removes a schedule entry.
type ScheduleDeleteRequest struct {
	ScheduleID string `json:"schedule_id"`
}

// SubscribeRequest subscribes to an event topic.
type SubscribeRequest struct {
	Channel string `json:"channel"`
	Credits int    `json:"credits,omitempty"` // Initial credits (0 = use default)
}

// UnsubscribeRequest removes a subscription.
type UnsubscribeRequest struct {
	Channel string `json:"channel"`
}

// ── Frame constructors ──────────────────────────────

// NewRequestFrame creates a new request frame.
func NewRequestFrame(id, method string, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Frame{
		ID:        id,
		Type:      FrameRequest,
		Method:    method,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// NewResponseFrame creates a response to a request.
func NewResponseFrame(correlID string, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Frame{
		ID:        GenerateFrameID(),
		Type:      FrameResponse,
		CorrelID:  correlID,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// NewErrorFrame creates an error response to a request.
func NewErrorFrame(correlID string, code int, message string) *Frame {
	return &Frame{
		ID:       GenerateFrameID(),
		Type:     FrameErr,
		CorrelID: correlID,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewEventFrame creates an event frame for a subscription topic.
func NewEventFrame(channel string, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Frame{
		ID:        GenerateFrameID(),
		Type:      FrameEvent,
		Channel:   channel,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

var frameCounter atomic.Uint64

// GenerateFrameID returns a new unique frame ID. A process-wide counter
// keeps IDs distinct even within the same nanosecond.
func GenerateFrameID() string {
	return strconv.FormatInt(time.Now().UTC().UnixNano(), 36) +
		"-" + strconv.FormatUint(frameCounter.Add(1), 36)
}
