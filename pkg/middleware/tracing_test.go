package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)), recorder
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	tp, recorder := newRecordingProvider()

	var handlerSpan trace.SpanContext
	h := Tracing(tp, propagation.TraceContext{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerSpan = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/r1/bookings", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "POST /api/v1/rooms/r1/bookings" {
		t.Errorf("span name = %q", span.Name())
	}
	if got := span.SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s, want the incoming one", got)
	}
	if span.Parent().SpanID().String() != "00f067aa0ba902b7" {
		t.Errorf("parent span = %s", span.Parent().SpanID())
	}
	if handlerSpan.SpanID() != span.SpanContext().SpanID() {
		t.Error("handler context does not carry the server span")
	}
	if span.Status().Code == codes.Error {
		t.Error("2xx response must not mark the span as failed")
	}
}

func TestTracing_MarksServerErrors(t *testing.T) {
	tp, recorder := newRecordingProvider()

	h := Tracing(tp, propagation.TraceContext{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want error", spans[0].Status().Code)
	}

	var status int64
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "http.response.status_code" {
			status = attr.Value.AsInt64()
		}
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("status attribute = %d, want 503", status)
	}
}
