package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Spiderbuttons/autosort/ext"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/report"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*MetricsExtension)(nil)
	_ ext.SortStarted      = (*MetricsExtension)(nil)
	_ ext.SortCompleted    = (*MetricsExtension)(nil)
	_ ext.SortFailed       = (*MetricsExtension)(nil)
	_ ext.StackPlaced      = (*MetricsExtension)(nil)
	_ ext.LeftoverReturned = (*MetricsExtension)(nil)
	_ ext.ScheduleFired    = (*MetricsExtension)(nil)
)

// meterName is the instrumentation scope name for the extension's counters.
const meterName = "github.com/Spiderbuttons/autosort/observability"

// MetricsExtension records system-wide lifecycle counters via OpenTelemetry.
// Register it as an autosort extension to automatically track sort rates,
// failure counts, placed and leftover unit totals, and schedule fires.
type MetricsExtension struct {
	sortsStarted   metric.Int64Counter
	sortsCompleted metric.Int64Counter
	sortsFailed    metric.Int64Counter
	stacksPlaced   metric.Int64Counter
	unitsPlaced    metric.Int64Counter
	unitsLeftover  metric.Int64Counter
	schedulesFired metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider. If no MeterProvider is configured, noop instruments are
// used and the extension records nothing.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. This variant allows injecting a specific MeterProvider for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	// Instruments are created once here. On error the OTel API returns
	// noop instruments, so the extension degrades gracefully.
	mustCounter := func(name, desc, unit string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit(unit),
		)
		return c
	}

	return &MetricsExtension{
		sortsStarted:   mustCounter("autosort.sorts.started", "Total sorts started", "{sort}"),
		sortsCompleted: mustCounter("autosort.sorts.completed", "Total sorts completed", "{sort}"),
		sortsFailed:    mustCounter("autosort.sorts.failed", "Total sorts failed", "{sort}"),
		stacksPlaced:   mustCounter("autosort.stacks.placed", "Total stacks placed into destinations", "{stack}"),
		unitsPlaced:    mustCounter("autosort.units.placed", "Total units placed into destinations", "{unit}"),
		unitsLeftover:  mustCounter("autosort.units.leftover", "Total units returned to input containers", "{unit}"),
		schedulesFired: mustCounter("autosort.schedules.fired", "Total schedule entries fired", "{fire}"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func siteAttr(site string) metric.AddOption {
	return metric.WithAttributes(attribute.String("site", site))
}

// ── Sort lifecycle hooks ────────────────────────────

// OnSortStarted implements ext.SortStarted.
func (m *MetricsExtension) OnSortStarted(ctx context.Context, _ id.SortID, site string) error {
	m.sortsStarted.Add(ctx, 1, siteAttr(site))
	return nil
}

// OnSortCompleted implements ext.SortCompleted.
func (m *MetricsExtension) OnSortCompleted(ctx context.Context, r *report.Report, _ time.Duration) error {
	m.sortsCompleted.Add(ctx, 1, siteAttr(r.Site))
	return nil
}

// OnSortFailed implements ext.SortFailed.
func (m *MetricsExtension) OnSortFailed(ctx context.Context, _ id.SortID, site string, _ error) error {
	m.sortsFailed.Add(ctx, 1, siteAttr(site))
	return nil
}

// ── Routing hooks ───────────────────────────────────

// OnStackPlaced implements ext.StackPlaced.
func (m *MetricsExtension) OnStackPlaced(ctx context.Context, _ id.SortID, st item.Stack, _ id.ContainerID) error {
	m.stacksPlaced.Add(ctx, 1)
	m.unitsPlaced.Add(ctx, int64(st.Qty))
	return nil
}

// OnLeftoverReturned implements ext.LeftoverReturned.
func (m *MetricsExtension) OnLeftoverReturned(ctx context.Context, _ id.SortID, stacks []item.Stack) error {
	m.unitsLeftover.Add(ctx, int64(item.TotalQty(stacks)))
	return nil
}

// ── Schedule lifecycle hooks ────────────────────────

// OnScheduleFired implements ext.ScheduleFired.
func (m *MetricsExtension) OnScheduleFired(ctx context.Context, _ string, _ id.SortID) error {
	m.schedulesFired.Add(ctx, 1)
	return nil
}
