package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OTelHooks forwards engine, cache and store events to OpenTelemetry.
//
// Completion events carry their duration, so each one becomes a span that
// is started retroactively at now-duration and ended immediately. Start
// events are not recorded.
type OTelHooks struct {
	tracer trace.Tracer

	stageDuration metric.Float64Histogram
	stageFailures metric.Int64Counter
	cacheLookups  metric.Int64Counter
	cacheBytes    metric.Int64Counter
	queryDuration metric.Float64Histogram
	queryFailures metric.Int64Counter
}

// NewOTelHooks creates the hooks and their instruments.
func NewOTelHooks(tracer trace.Tracer, meter metric.Meter) (*OTelHooks, error) {
	h := &OTelHooks{tracer: tracer}
	var err error

	if h.stageDuration, err = meter.Float64Histogram("formulascope.engine.duration",
		metric.WithDescription("Duration of engine stages in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if h.stageFailures, err = meter.Int64Counter("formulascope.engine.failures",
		metric.WithDescription("Number of failed engine stages"),
	); err != nil {
		return nil, err
	}
	if h.cacheLookups, err = meter.Int64Counter("formulascope.cache.lookups",
		metric.WithDescription("Number of cache lookups by result"),
	); err != nil {
		return nil, err
	}
	if h.cacheBytes, err = meter.Int64Counter("formulascope.cache.written",
		metric.WithDescription("Bytes written to the cache"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if h.queryDuration, err = meter.Float64Histogram("formulascope.store.duration",
		metric.WithDescription("Duration of store queries in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if h.queryFailures, err = meter.Int64Counter("formulascope.store.failures",
		metric.WithDescription("Number of failed store queries"),
	); err != nil {
		return nil, err
	}
	return h, nil
}

// span records a finished operation as a span.
func (h *OTelHooks) span(ctx context.Context, name string, d time.Duration, err error, attrs ...attribute.KeyValue) {
	end := time.Now()
	_, span := h.tracer.Start(ctx, name,
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(attrs...),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

func (h *OTelHooks) stage(ctx context.Context, stage string, d time.Duration, err error, attrs ...attribute.KeyValue) {
	h.span(ctx, "engine."+stage, d, err, attrs...)
	opt := metric.WithAttributes(attribute.String("stage", stage))
	h.stageDuration.Record(ctx, d.Seconds(), opt)
	if err != nil {
		h.stageFailures.Add(ctx, 1, opt)
	}
}

func (h *OTelHooks) OnTreeStart(context.Context, string) {}

func (h *OTelHooks) OnTreeComplete(ctx context.Context, root string, nodes int, d time.Duration, err error) {
	h.stage(ctx, "tree", d, err,
		attribute.String("formula.root", root),
		attribute.Int("tree.nodes", nodes),
	)
}

func (h *OTelHooks) OnLayoutStart(context.Context, string, int) {}

func (h *OTelHooks) OnLayoutComplete(ctx context.Context, root string, nodes int, d time.Duration, err error) {
	h.stage(ctx, "layout", d, err,
		attribute.String("formula.root", root),
		attribute.Int("graph.nodes", nodes),
	)
}

func (h *OTelHooks) OnDerivativeStart(context.Context, string, string) {}

func (h *OTelHooks) OnDerivativeComplete(ctx context.Context, root, method string, partials int, d time.Duration, err error) {
	h.stage(ctx, "derivative", d, err,
		attribute.String("formula.root", root),
		attribute.String("derivative.method", method),
		attribute.Int("derivative.partials", partials),
	)
}

func (h *OTelHooks) OnRenderStart(context.Context, string) {}

func (h *OTelHooks) OnRenderComplete(ctx context.Context, format string, size int, d time.Duration, err error) {
	h.stage(ctx, "render", d, err,
		attribute.String("render.format", format),
		attribute.Int("render.bytes", size),
	)
}

func (h *OTelHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key_type", keyType),
		attribute.String("result", "hit"),
	))
}

func (h *OTelHooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key_type", keyType),
		attribute.String("result", "miss"),
	))
}

func (h *OTelHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	h.cacheBytes.Add(ctx, int64(size), metric.WithAttributes(attribute.String("key_type", keyType)))
}

func (h *OTelHooks) OnQuery(context.Context, string, string) {}

func (h *OTelHooks) OnQueryComplete(ctx context.Context, backend, op string, d time.Duration, err error) {
	h.span(ctx, "store."+op, d, err, attribute.String("store.backend", backend))
	opt := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("op", op),
	)
	h.queryDuration.Record(ctx, d.Seconds(), opt)
	if err != nil {
		h.queryFailures.Add(ctx, 1, opt)
	}
}

var (
	_ EngineHooks = (*OTelHooks)(nil)
	_ CacheHooks  = (*OTelHooks)(nil)
	_ StoreHooks  = (*OTelHooks)(nil)
)
