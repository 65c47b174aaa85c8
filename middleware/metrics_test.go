package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/Spiderbuttons/autosort/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_RecordsDuration(t *testing.T) {
	reader, mp := setupTestMeter()
	meter := mp.Meter("test")
	m := mw.MetricsWithMeter(meter)

	_ = m(context.Background(), newTestOp(), func(_ context.Context) error {
		return nil
	})

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "autosort.sort.duration")
	if metric == nil {
		t.Fatal("autosort.sort.duration metric not found")
	}

	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected Histogram[float64] data type")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points recorded for duration")
	}
	if hist.DataPoints[0].Count != 1 {
		t.Errorf("expected count=1, got %d", hist.DataPoints[0].Count)
	}
}

func TestMetrics_RecordsInvocations_Status(t *testing.T) {
	reader, mp := setupTestMeter()
	meter := mp.Meter("test")
	m := mw.MetricsWithMeter(meter)

	_ = m(context.Background(), newTestOp(), func(_ context.Context) error {
		return nil
	})
	_ = m(context.Background(), newTestOp(), func(_ context.Context) error {
		return errors.New("boom")
	})

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "autosort.sort.invocations")
	if metric == nil {
		t.Fatal("autosort.sort.invocations metric not found")
	}

	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("expected Sum[int64] data type")
	}

	var okCount, errCount int64
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		switch status.AsString() {
		case "ok":
			okCount += dp.Value
		case "error":
			errCount += dp.Value
		}
	}
	if okCount != 1 {
		t.Errorf("expected 1 ok invocation, got %d", okCount)
	}
	if errCount != 1 {
		t.Errorf("expected 1 error invocation, got %d", errCount)
	}
}

func TestMetrics_ErrorStillPropagates(t *testing.T) {
	_, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	sentinel := errors.New("boom")
	err := m(context.Background(), newTestOp(), func(_ context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}
