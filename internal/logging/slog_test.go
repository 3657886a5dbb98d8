package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "JSON")
	logger.Info("hello", Tool("BookSlot"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "BookSlot", entry[KeyTool])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, FormatText)
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{Operation("booking.check"), KeyOperation, "booking.check"},
		{Tool("CheckAvailability"), KeyTool, "CheckAvailability"},
		{Intent("book_slot"), KeyIntent, "book_slot"},
		{Stage("fallback"), KeyStage, "fallback"},
		{CalendarID("team@example.com"), KeyCalendar, "team@example.com"},
		{SessionID("abc"), KeySession, "abc"},
		{RequestID("req-1"), KeyRequestID, "req-1"},
		{Status(StatusSuccess), KeyStatus, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.val, tt.attr.Value.String())
		})
	}
}

func TestWithOperationAndTool(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, slog.LevelInfo, FormatText)

	WithTool(WithOperation(base, "dispatch"), "BookSlot").Info("run")

	assert.Contains(t, buf.String(), "operation=dispatch")
	assert.Contains(t, buf.String(), "tool=BookSlot")
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "test error", attr.Value.String())

	// Empty Group has empty key
	assert.Equal(t, "", Err(nil).Key)
}

func TestTruncateMessage(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short", "book a slot", 80, "book a slot"},
		{"exact", "abc", 3, "abc"},
		{"cut", "abcdef", 3, "abc..."},
		{"multibyte", "héllo wörld", 5, "héllo..."},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateMessage(tt.in, tt.maxLen))
		})
	}
}

func TestMessage(t *testing.T) {
	long := strings.Repeat("x", MaxMessageLen+10)
	attr := Message(long)
	assert.Equal(t, KeyMessage, attr.Key)
	assert.Equal(t, MaxMessageLen+3, len(attr.Value.String()))
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeKey(""))
	assert.Equal(t, "[key:6 chars]", SanitizeKey("abc123"))
}
