package instrumentation

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

// counterTotal sums all data points of the named int64 counter.
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is not an int64 sum", name)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/chat", 200, 100*time.Millisecond)
	m.RecordHTTPRequest(ctx, "POST", "", 404, 5*time.Millisecond)

	if got := counterTotal(t, reader, "http_requests_total"); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "BookSlot", StatusSuccess, time.Second)
	m.RecordToolInvocation(ctx, "CheckAvailability", StatusError, time.Second)

	if got := counterTotal(t, reader, "assistant_tool_invocations_total"); got != 2 {
		t.Errorf("expected 2 invocations, got %d", got)
	}
}

func TestMetrics_RecordBookingPipeline(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordExtraction(ctx, "llm", "complete")
	m.RecordExtraction(ctx, "fallback", "complete")
	m.RecordExtraction(ctx, "none", "failed")
	m.RecordBookingOutcome(ctx, OutcomeBooked)
	m.RecordCalendarOperation(ctx, OperationList, StatusSuccess, 20*time.Millisecond)
	m.RecordLLMRequest(ctx, "gemini-2.5-flash", StatusError, time.Second)
	m.RecordIntentClassification(ctx, "keyword", "book_slot")

	tests := map[string]int64{
		"booking_extractions_total":              3,
		"booking_outcomes_total":                 1,
		"calendar_api_operations_total":          1,
		"llm_requests_total":                     1,
		"assistant_intent_classifications_total": 1,
	}
	for name, want := range tests {
		if got := counterTotal(t, reader, name); got != want {
			t.Errorf("%s: expected %d, got %d", name, want, got)
		}
	}
}

func TestMetrics_NoOp_WhenNil(t *testing.T) {
	ctx := context.Background()

	// Both a nil pointer and a zero value must be safe to use
	for _, m := range []*Metrics{nil, {}} {
		m.RecordHTTPRequest(ctx, "GET", "/chat", 200, time.Millisecond)
		m.RecordToolInvocation(ctx, "BookSlot", StatusSuccess, time.Millisecond)
		m.RecordIntentClassification(ctx, "keyword", "unknown")
		m.RecordCalendarOperation(ctx, OperationInsert, StatusSuccess, time.Millisecond)
		m.RecordLLMRequest(ctx, "model", StatusSuccess, time.Millisecond)
		m.RecordExtraction(ctx, "llm", "complete")
		m.RecordBookingOutcome(ctx, OutcomeConflict)
	}
}

func TestRouteLabel(t *testing.T) {
	if got := RouteLabel("/chat"); got != "/chat" {
		t.Errorf("expected /chat, got %s", got)
	}
	if got := RouteLabel(""); got != RouteUnmatched {
		t.Errorf("expected %s, got %s", RouteUnmatched, got)
	}
}
