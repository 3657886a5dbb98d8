package assistant

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotbot/internal/booking"
	"github.com/teemow/slotbot/internal/calendar"
	"github.com/teemow/slotbot/internal/instrumentation"
)

type staticClassifier struct {
	intent Intent
	err    error
}

func (s staticClassifier) Classify(context.Context, string) (Intent, error) {
	return s.intent, s.err
}

type panickingClassifier struct{}

func (panickingClassifier) Classify(context.Context, string) (Intent, error) {
	panic("classifier exploded")
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, string) booking.Extraction {
	panic("extractor exploded")
}

func TestDispatcherHandle(t *testing.T) {
	booker := &fakeBooker{
		avail: &booking.Availability{Available: true},
		event: &calendar.Event{HTMLLink: "https://calendar.example/evt-9"},
	}
	registry := NewRegistry(&fakeExtractor{ext: completeExtraction()}, booker)

	tests := []struct {
		name       string
		classifier IntentClassifier
		want       string
	}{
		{"check availability", staticClassifier{intent: IntentCheckAvailability}, MsgAvailable},
		{"book slot", staticClassifier{intent: IntentBookSlot}, "Your appointment has been booked. You can view it here: https://calendar.example/evt-9"},
		{"unknown", staticClassifier{intent: IntentUnknown}, MsgHelp},
		{"classifier error", staticClassifier{err: errors.New("boom")}, MsgApology},
		{"classifier panic", panickingClassifier{}, MsgApology},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(tt.classifier, registry)
			got := d.Handle(context.Background(), Request{Message: "hi", SessionID: "s-1"})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcherToolPanic(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	d := NewDispatcher(
		staticClassifier{intent: IntentBookSlot},
		NewRegistry(panickingExtractor{}, &fakeBooker{}),
		WithAuditLogger(audit),
	)

	got := d.Handle(context.Background(), Request{Message: "Book 3pm on 04-07-2025"})
	assert.Equal(t, MsgApology, got)
	assert.Contains(t, buf.String(), "tool_failed")
	assert.Contains(t, buf.String(), "extractor exploded")
}

func TestDispatcherAudit(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLoggerWithConfig(
		slog.New(slog.NewJSONHandler(&buf, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true},
	)

	conflict := &booking.ConflictError{Events: []calendar.Event{{Summary: "Standup"}}}
	d := NewDispatcher(
		staticClassifier{intent: IntentBookSlot},
		NewRegistry(&fakeExtractor{ext: completeExtraction()}, &fakeBooker{err: conflict}),
		WithAuditLogger(audit),
	)

	got := d.Handle(context.Background(), Request{Message: "Book a private thing at 3pm", SessionID: "s-42"})
	assert.Equal(t, "Error: The time slot is occupied by: Standup", got)

	out := buf.String()
	assert.Contains(t, out, "tool_executed")
	assert.Contains(t, out, `"tool":"BookSlot"`)
	assert.Contains(t, out, `"intent":"book_slot"`)
	assert.Contains(t, out, `"session_id":"s-42"`)
	assert.Contains(t, out, `"outcome":"conflict"`)
	assert.NotContains(t, out, "private thing")
}

func TestDispatcherRunTool(t *testing.T) {
	ext := &fakeExtractor{ext: completeExtraction()}
	d := NewDispatcher(staticClassifier{intent: IntentUnknown},
		NewRegistry(ext, &fakeBooker{avail: &booking.Availability{}}))

	reply, err := d.RunTool(context.Background(), ToolCheckAvailability, Request{Message: "is 3pm free"})
	require.NoError(t, err)
	assert.Equal(t, MsgNotAvailable, reply.Text)
	assert.Equal(t, 1, ext.calls)

	_, err = d.RunTool(context.Background(), "CancelSlot", Request{})
	assert.Error(t, err)
}
