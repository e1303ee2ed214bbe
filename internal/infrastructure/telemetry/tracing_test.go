package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/orgmap/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attributeMap(span sdktrace.ReadOnlySpan) map[string]any {
	out := map[string]any{}
	for _, attr := range span.Attributes() {
		out[string(attr.Key)] = attr.Value.AsInterface()
	}
	return out
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "grade_import.upload")
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "grade_import.upload", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "upload",
		telemetry.WithSpanKind(trace.SpanKindServer),
		telemetry.WithAttribute(telemetry.SpanAttrEntityType, "grades"),
		telemetry.WithAttribute(telemetry.SpanAttrTotalRows, 12),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	attrs := attributeMap(spans[0])
	assert.Equal(t, "grades", attrs[telemetry.SpanAttrEntityType])
	assert.Equal(t, int64(12), attrs[telemetry.SpanAttrTotalRows])
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "mapping_import", "upload")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "mapping_import.upload", spans[0].Name())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	uploadID := uuid.New()
	_, span := telemetry.StartSpan(context.Background(), "upload")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUploadID, uploadID,
		telemetry.SpanAttrInsertedRows, int64(4),
		telemetry.SpanAttrFileName, "grades.csv",
		42, "ignored because the key is not a string",
		"dangling",
	)
	span.End()

	attrs := attributeMap(sr.Ended()[0])
	assert.Equal(t, uploadID.String(), attrs[telemetry.SpanAttrUploadID])
	assert.Equal(t, int64(4), attrs[telemetry.SpanAttrInsertedRows])
	assert.Equal(t, "grades.csv", attrs[telemetry.SpanAttrFileName])
	assert.Len(t, attrs, 3)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "upload")
	telemetry.RecordError(span, errors.New("store unreachable"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "store unreachable", spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)

	t.Run("nil error leaves the span untouched", func(t *testing.T) {
		_, span := telemetry.StartSpan(context.Background(), "ok")
		telemetry.RecordError(span, nil)
		span.End()

		spans := sr.Ended()
		assert.Equal(t, codes.Unset, spans[len(spans)-1].Status().Code)
	})

	t.Run("nil span", func(t *testing.T) {
		assert.NotPanics(t, func() { telemetry.RecordError(nil, errors.New("x")) })
	})
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "upload")
	telemetry.AddEvent(span, "rows_dropped", "count", 2, "reason", "unknown_grade")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "rows_dropped", events[0].Name)
	assert.Len(t, events[0].Attributes, 2)

	assert.NotPanics(t, func() { telemetry.AddEvent(nil, "noop") })
}
