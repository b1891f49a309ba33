package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for service spans
const TracerName = "store-backend"

// Span attribute keys
const (
	SpanAttrEntity   = "store.entity"
	SpanAttrEntityID = "store.entity_id"
	SpanAttrQuery    = "store.search.query"
	SpanAttrPage     = "store.page"
	SpanAttrSize     = "store.page_size"
	SpanAttrCount    = "store.count"
)

// StartServiceSpan starts an internal span named {entity}.{op}, e.g. "product.save"
func StartServiceSpan(ctx context.Context, entity, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String(SpanAttrEntity, entity))
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, entity+"."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks the span failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds a named event with attributes to the span in ctx
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
