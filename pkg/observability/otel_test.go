package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestHooks(t *testing.T) (*OTelHooks, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	h, err := NewOTelHooks(tp.Tracer("test"), mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewOTelHooks: %v", err)
	}
	return h, exporter, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func TestOTelHooksTreeSpan(t *testing.T) {
	h, exporter, reader := newTestHooks(t)
	ctx := context.Background()

	h.OnTreeStart(ctx, "Total_Cost")
	h.OnTreeComplete(ctx, "Total_Cost", 7, 50*time.Millisecond, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name != "engine.tree" {
		t.Errorf("span name = %q, want %q", s.Name, "engine.tree")
	}
	if got := s.EndTime.Sub(s.StartTime); got != 50*time.Millisecond {
		t.Errorf("span duration = %v, want 50ms", got)
	}
	found := false
	for _, a := range s.Attributes {
		if a.Key == "formula.root" && a.Value.AsString() == "Total_Cost" {
			found = true
		}
	}
	if !found {
		t.Error("expected formula.root attribute")
	}

	m := findMetric(collect(t, reader), "formulascope.engine.duration")
	if m == nil {
		t.Fatal("formulascope.engine.duration not recorded")
	}
	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data = %T, want Histogram[float64]", m.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("histogram points = %+v", hist.DataPoints)
	}
}

func TestOTelHooksFailure(t *testing.T) {
	h, exporter, reader := newTestHooks(t)
	ctx := context.Background()

	h.OnQueryComplete(ctx, "mongo", "get", time.Millisecond, errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}

	m := findMetric(collect(t, reader), "formulascope.store.failures")
	if m == nil {
		t.Fatal("formulascope.store.failures not recorded")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data = %T, want Sum[int64]", m.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("failure points = %+v", sum.DataPoints)
	}
}

func TestOTelHooksCacheCounters(t *testing.T) {
	h, _, reader := newTestHooks(t)
	ctx := context.Background()

	h.OnCacheHit(ctx, "tree")
	h.OnCacheHit(ctx, "tree")
	h.OnCacheMiss(ctx, "tree")
	h.OnCacheSet(ctx, "tree", 512)

	rm := collect(t, reader)
	m := findMetric(rm, "formulascope.cache.lookups")
	if m == nil {
		t.Fatal("formulascope.cache.lookups not recorded")
	}
	sum := m.Data.(metricdata.Sum[int64])
	got := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("result")
		got[v.AsString()] = dp.Value
	}
	if got["hit"] != 2 || got["miss"] != 1 {
		t.Errorf("lookups = %v, want hit=2 miss=1", got)
	}

	w := findMetric(rm, "formulascope.cache.written")
	if w == nil {
		t.Fatal("formulascope.cache.written not recorded")
	}
	if v := w.Data.(metricdata.Sum[int64]).DataPoints[0].Value; v != 512 {
		t.Errorf("written = %d, want 512", v)
	}
}
