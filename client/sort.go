package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/swp"
)

// TriggerSort starts a sort of the named site on the remote server and
// blocks until it finishes.
func (c *Client) TriggerSort(ctx context.Context, site string) (*swp.SortTriggerResponse, error) {
	resp, err := c.request(ctx, swp.MethodSortTrigger, swp.SortTriggerRequest{
		Site: site,
	})
	if err != nil {
		return nil, err
	}

	var result swp.SortTriggerResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &result, nil
}

// GetReport retrieves a sort report by ID.
func (c *Client) GetReport(ctx context.Context, reportID string) (*report.Report, error) {
	resp, err := c.request(ctx, swp.MethodReportGet, swp.ReportGetRequest{
		ReportID: reportID,
	})
	if err != nil {
		return nil, err
	}

	var r report.Report
	if err := json.Unmarshal(resp.Data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

// ListReports retrieves recent reports, newest first. An empty site
// matches all sites; a zero limit applies the server default.
func (c *Client) ListReports(ctx context.Context, site string, limit int) ([]*report.Report, error) {
	resp, err := c.request(ctx, swp.MethodReportList, swp.ReportListRequest{
		Site:  site,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	var reports []*report.Report
	if err := json.Unmarshal(resp.Data, &reports); err != nil {
		return nil, fmt.Errorf("unmarshal reports: %w", err)
	}
	return reports, nil
}

// TrimReports deletes reports finished longer than retention ago and
// returns how many were removed. Requires the admin scope.
func (c *Client) TrimReports(ctx context.Context, retention time.Duration) (int, error) {
	resp, err := c.request(ctx, swp.MethodReportTrim, swp.ReportTrimRequest{
		Retention: retention.String(),
	})
	if err != nil {
		return 0, err
	}

	var result swp.ReportTrimResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}
	return result.Removed, nil
}
