package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotbot/internal/llm"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func TestFallbackStage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantStart string
		wantEnd   string
		wantErr   error
	}{
		{
			name:      "12-hour with duration",
			text:      "Book a meeting at 3:00 pm on 04-07-2025 for 2 hour",
			wantStart: "2025-07-04T15:00:00",
			wantEnd:   "2025-07-04T17:00:00",
		},
		{
			name:      "no space before meridiem",
			text:      "04-07-2025 11:30am call",
			wantStart: "2025-07-04T11:30:00",
			wantEnd:   "2025-07-04T12:30:00",
		},
		{
			name:      "24-hour defaults to one hour",
			text:      "Review on 04-07-2025 at 15:30",
			wantStart: "2025-07-04T15:30:00",
			wantEnd:   "2025-07-04T16:30:00",
		},
		{
			name:      "duration is case-insensitive",
			text:      "04-07-2025 9:00 AM For 3 Hours",
			wantStart: "2025-07-04T09:00:00",
			wantEnd:   "2025-07-04T12:00:00",
		},
		{
			name:    "duration that would overflow",
			text:    "Review 04-07-2025 3:00 pm for 5124096 hours",
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "duration beyond int range",
			text:    "Review 04-07-2025 3:00 pm for 99999999999999999999 hours",
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "zero duration",
			text:    "Review 04-07-2025 3:00 pm for 0 hours",
			wantErr: ErrInvalidDuration,
		},
		{
			name:      "longest allowed duration",
			text:      "Retreat 04-07-2025 9:00 am for 8784 hours",
			wantStart: "2025-07-04T09:00:00",
			wantEnd:   "2026-07-05T09:00:00",
		},
		{
			name:    "no date",
			text:    "book a meeting at 3:00 pm tomorrow",
			wantErr: ErrNoTimeDetails,
		},
		{
			name:    "no time",
			text:    "book something on 04-07-2025",
			wantErr: ErrNoTimeDetails,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := FallbackStage{}.Extract(context.Background(), tt.text)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, d.StartTime)
			assert.Equal(t, tt.wantEnd, d.EndTime)
			assert.NotEmpty(t, d.Summary)
		})
	}
}

func TestFallbackStage_InvalidClock(t *testing.T) {
	_, err := FallbackStage{}.Extract(context.Background(), "04-07-2025 at 25:00")
	require.Error(t, err)
}

func TestLLMStage(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)

	t.Run("fenced json", func(t *testing.T) {
		f := &fakeCompleter{reply: "```json\n{\"start_time\":\"2025-07-04T15:00:00\",\"end_time\":\"2025-07-04T16:00:00\",\"summary\":\"Meeting\"}\n```"}
		stage := NewLLMStage(f, ist)
		stage.now = func() time.Time { return time.Date(2025, 7, 1, 9, 0, 0, 0, ist) }

		d, err := stage.Extract(context.Background(), "meeting on 4th july at 3pm")
		require.NoError(t, err)
		assert.Equal(t, Details{StartTime: "2025-07-04T15:00:00", EndTime: "2025-07-04T16:00:00", Summary: "Meeting"}, d)

		assert.True(t, f.last.JSON)
		assert.Contains(t, f.last.Prompt, "Return your answer as JSON with keys: start_time (ISO 8601)")
		assert.Contains(t, f.last.Prompt, "2025-07-01T09:00:00+05:30")
		assert.Contains(t, f.last.Prompt, "Request: meeting on 4th july at 3pm")
	})

	t.Run("nulls", func(t *testing.T) {
		f := &fakeCompleter{reply: `{"start_time": null, "end_time": null, "summary": "Meeting"}`}
		_, err := NewLLMStage(f, ist).Extract(context.Background(), "meeting")
		require.ErrorIs(t, err, ErrNoTimeDetails)
	})

	t.Run("not json", func(t *testing.T) {
		f := &fakeCompleter{reply: "Sure! Your meeting is at 3pm."}
		_, err := NewLLMStage(f, ist).Extract(context.Background(), "meeting")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unparseable LLM reply")
	})

	t.Run("backend error", func(t *testing.T) {
		f := &fakeCompleter{err: errors.New("quota exceeded")}
		_, err := NewLLMStage(f, ist).Extract(context.Background(), "meeting")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LLM error")
	})
}

func TestPipeline_Extract(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	const fallbackText = "Book a meeting with my friend at 3:00 pm on 04-07-2025 for 2 hour"

	tests := []struct {
		name        string
		completer   *fakeCompleter
		text        string
		wantStage   Stage
		wantStatus  Status
		wantStart   string
		wantSummary string
	}{
		{
			name:        "llm result used",
			completer:   &fakeCompleter{reply: `{"start_time":"2025-07-04T10:00:00","end_time":"2025-07-04T11:00:00","summary":"Dentist"}`},
			text:        "dentist 04-07-2025 at 10am",
			wantStage:   StageLLM,
			wantStatus:  StatusComplete,
			wantStart:   "2025-07-04T10:00:00",
			wantSummary: "Dentist",
		},
		{
			name:        "llm summary missing",
			completer:   &fakeCompleter{reply: `{"start_time":"2025-07-04T10:00:00","end_time":"2025-07-04T11:00:00","summary":null}`},
			text:        "Dentist at 10am on 04-07-2025",
			wantStage:   StageLLM,
			wantStatus:  StatusComplete,
			wantStart:   "2025-07-04T10:00:00",
			wantSummary: "Dentist",
		},
		{
			name:        "llm error falls back",
			completer:   &fakeCompleter{err: errors.New("unavailable")},
			text:        fallbackText,
			wantStage:   StageFallback,
			wantStatus:  StatusComplete,
			wantStart:   "2025-07-04T15:00:00",
			wantSummary: "Book a meeting with my friend",
		},
		{
			name:        "llm garbage falls back",
			completer:   &fakeCompleter{reply: "I cannot help with that"},
			text:        fallbackText,
			wantStage:   StageFallback,
			wantStatus:  StatusComplete,
			wantStart:   "2025-07-04T15:00:00",
			wantSummary: "Book a meeting with my friend",
		},
		{
			name:        "llm nulls fall back",
			completer:   &fakeCompleter{reply: `{"start_time":null,"end_time":null,"summary":null}`},
			text:        fallbackText,
			wantStage:   StageFallback,
			wantStatus:  StatusComplete,
			wantStart:   "2025-07-04T15:00:00",
			wantSummary: "Book a meeting with my friend",
		},
		{
			name:       "both stages fail",
			completer:  &fakeCompleter{err: errors.New("unavailable")},
			text:       "book something sometime",
			wantStage:  StageNone,
			wantStatus: StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(NewLLMStage(tt.completer, ist))
			got := p.Extract(context.Background(), tt.text)

			assert.Equal(t, tt.wantStage, got.Stage)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, 1, tt.completer.calls)

			if tt.wantStatus == StatusFailed {
				assert.False(t, got.Complete())
				assert.Error(t, got.Err)
				assert.False(t, got.Details.HasTimes())
				return
			}
			assert.True(t, got.Complete())
			assert.NoError(t, got.Err)
			assert.Equal(t, tt.wantStart, got.Details.StartTime)
			assert.Equal(t, tt.wantSummary, got.Details.Summary)
		})
	}
}

func TestPipeline_FallbackOnly(t *testing.T) {
	p := NewPipeline(nil)

	got := p.Extract(context.Background(), "Sync 04-07-2025 3:00 pm for 2 hour")
	require.True(t, got.Complete())
	assert.Equal(t, StageFallback, got.Stage)
	assert.Equal(t, "2025-07-04T15:00:00", got.Details.StartTime)
	assert.Equal(t, "2025-07-04T17:00:00", got.Details.EndTime)

	failed := p.Extract(context.Background(), "hello")
	assert.Equal(t, StageNone, failed.Stage)
	assert.ErrorIs(t, failed.Err, ErrNoTimeDetails)

	tooLong := p.Extract(context.Background(), "Review 04-07-2025 3:00 pm for 5124096 hours")
	assert.False(t, tooLong.Complete())
	assert.Equal(t, StatusFailed, tooLong.Status)
	assert.ErrorIs(t, tooLong.Err, ErrInvalidDuration)
}
