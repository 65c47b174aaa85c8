package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Spiderbuttons/autosort/schedule"
	"github.com/Spiderbuttons/autosort/swp"
)

// PutSchedule creates a schedule that sorts the named site on the given
// cron expression. Entries are enabled unless the Disabled option is set.
func (c *Client) PutSchedule(ctx context.Context, name, site, expr string, opts ...ScheduleOption) (*swp.SchedulePutResponse, error) {
	req := swp.SchedulePutRequest{
		Name:    name,
		Site:    site,
		Expr:    expr,
		Enabled: true,
	}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.request(ctx, swp.MethodSchedulePut, req)
	if err != nil {
		return nil, err
	}

	var result swp.SchedulePutResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &result, nil
}

// ListSchedules retrieves all schedule entries.
func (c *Client) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	resp, err := c.request(ctx, swp.MethodScheduleList, nil)
	if err != nil {
		return nil, err
	}

	var entries []*schedule.Entry
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal schedules: %w", err)
	}
	return entries, nil
}

// DeleteSchedule removes a schedule entry by ID.
func (c *Client) DeleteSchedule(ctx context.Context, scheduleID string) error {
	_, err := c.request(ctx, swp.MethodScheduleDelete, swp.ScheduleDeleteRequest{
		ScheduleID: scheduleID,
	})
	return err
}

// ScheduleOption configures a schedule put request.
type ScheduleOption func(*swp.SchedulePutRequest)

// Disabled creates the entry paused; it will not fire until enabled.
func Disabled() ScheduleOption {
	return func(r *swp.SchedulePutRequest) { r.Enabled = false }
}
