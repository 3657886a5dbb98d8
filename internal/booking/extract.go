package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/llm"
	"github.com/teemow/slotbot/internal/logging"
)

// Stage names the pipeline stage that produced an Extraction.
type Stage string

const (
	StageLLM      Stage = "llm"
	StageFallback Stage = "fallback"
	StageNone     Stage = "none"
)

// Status tags an Extraction as usable or not.
type Status string

const (
	// StatusComplete means both start and end are present.
	StatusComplete Status = "complete"
	// StatusFailed means no stage could produce a start and an end.
	StatusFailed Status = "failed"
)

// ErrNoTimeDetails is returned by a stage that found no usable start and end.
var ErrNoTimeDetails = errors.New("no date and time found")

// ErrInvalidDuration is returned by FallbackStage for a "for N hours" phrase
// outside 1..MaxDurationHours.
var ErrInvalidDuration = errors.New("invalid duration")

// MaxDurationHours caps the length of a booking read from "for N hours".
const MaxDurationHours = 24 * 366

// localLayout is how the fallback stage writes times: wall clock, no offset.
const localLayout = "2006-01-02T15:04:05"

// Details is a booking request as extracted from text. Times are ISO 8601
// strings, possibly without offset.
type Details struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Summary   string `json:"summary"`
}

// HasTimes reports whether both start and end are set.
func (d Details) HasTimes() bool {
	return strings.TrimSpace(d.StartTime) != "" && strings.TrimSpace(d.EndTime) != ""
}

// Extraction is the typed result of running the pipeline.
type Extraction struct {
	Details Details
	Stage   Stage
	Status  Status

	// Err explains a failed extraction. It is nil when Status is StatusComplete.
	Err error
}

// Complete reports whether the extraction can be used for booking.
func (e Extraction) Complete() bool {
	return e.Status == StatusComplete
}

// DetailExtractor is one stage of the extraction pipeline.
type DetailExtractor interface {
	Extract(ctx context.Context, text string) (Details, error)
}

const extractionPrompt = "Extract the following details from this booking request. " +
	"Return your answer as JSON with keys: start_time (ISO 8601), end_time (ISO 8601), " +
	"summary (a concise description of the event). " +
	"If any detail is missing, use null. " +
	"If the date is given in DD-MM-YYYY or similar format, convert it to ISO 8601. "

// LLMStage asks a language model for the booking details.
type LLMStage struct {
	completer llm.Completer
	loc       *time.Location
	now       func() time.Time
}

// NewLLMStage returns an LLMStage using completer. The current time in loc is
// included in the prompt so that relative dates can be resolved.
func NewLLMStage(completer llm.Completer, loc *time.Location) *LLMStage {
	if loc == nil {
		loc = time.UTC
	}
	return &LLMStage{completer: completer, loc: loc, now: time.Now}
}

// Extract implements DetailExtractor.
func (s *LLMStage) Extract(ctx context.Context, text string) (Details, error) {
	prompt := extractionPrompt +
		fmt.Sprintf("The current date and time is %s (%s). ", s.now().In(s.loc).Format(time.RFC3339), s.loc) +
		"Request: " + text

	reply, err := s.completer.Complete(ctx, llm.Request{Prompt: prompt, JSON: true})
	if err != nil {
		return Details{}, fmt.Errorf("LLM error: %w", err)
	}

	var d Details
	if err := json.Unmarshal([]byte(llm.StripCodeFence(reply)), &d); err != nil {
		return Details{}, fmt.Errorf("unparseable LLM reply: %w", err)
	}
	if !d.HasTimes() {
		return d, ErrNoTimeDetails
	}
	return d, nil
}

var (
	fallbackDate     = regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`)
	fallbackTime     = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s?(?:am|pm)?)`)
	fallbackDuration = regexp.MustCompile(`(?i)for\s+(\d+)\s*hour`)
)

// FallbackStage extracts details with regular expressions. It understands a
// DD-MM-YYYY date, an HH:MM time with optional am/pm, and "for N hour(s)".
type FallbackStage struct{}

// Extract implements DetailExtractor.
func (FallbackStage) Extract(_ context.Context, text string) (Details, error) {
	dateStr := fallbackDate.FindString(text)
	timeStr := fallbackTime.FindString(text)
	if dateStr == "" || timeStr == "" {
		return Details{}, ErrNoTimeDetails
	}

	start, err := parseDateClock(dateStr, timeStr)
	if err != nil {
		return Details{}, err
	}

	hours := 1
	if m := fallbackDuration.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > MaxDurationHours {
			return Details{}, fmt.Errorf("%w: %s hours", ErrInvalidDuration, m[1])
		}
		hours = n
	}
	end := start.Add(time.Duration(hours) * time.Hour)

	return Details{
		StartTime: start.Format(localLayout),
		EndTime:   end.Format(localLayout),
		Summary:   ExtractSummary(text),
	}, nil
}

// parseDateClock combines a DD-MM-YYYY date with a clock time, trying the
// 12-hour reading first and the 24-hour reading second.
func parseDateClock(dateStr, timeStr string) (time.Time, error) {
	clock := strings.ToUpper(strings.ReplaceAll(timeStr, " ", ""))
	if t, err := time.Parse("02-01-2006 3:04PM", dateStr+" "+clock); err == nil {
		return t, nil
	}
	t, err := time.Parse("02-01-2006 15:04", dateStr+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q and time %q: %w", dateStr, timeStr, err)
	}
	return t, nil
}

// Pipeline runs the LLM stage and falls back to the deterministic stage.
type Pipeline struct {
	primary  DetailExtractor
	fallback DetailExtractor
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineMetrics records extraction results on m.
func WithPipelineMetrics(m *instrumentation.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFallback replaces the deterministic stage.
func WithFallback(stage DetailExtractor) PipelineOption {
	return func(p *Pipeline) { p.fallback = stage }
}

// NewPipeline returns a Pipeline with primary as its first stage. A nil
// primary runs only the fallback stage.
func NewPipeline(primary DetailExtractor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		primary:  primary,
		fallback: FallbackStage{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract runs the stages in order. The fallback stage runs when the first
// stage errors, returns unparseable output, or yields no start or end. A
// missing summary is derived from the text.
func (p *Pipeline) Extract(ctx context.Context, text string) Extraction {
	var errs []error

	if p.primary != nil {
		d, err := p.primary.Extract(ctx, text)
		if err == nil && d.HasTimes() {
			return p.done(ctx, text, d, StageLLM)
		}
		p.logger.Debug("LLM extraction unusable, trying fallback", logging.Err(err))
		errs = append(errs, err)
	}

	if p.fallback != nil {
		d, err := p.fallback.Extract(ctx, text)
		if err == nil && d.HasTimes() {
			return p.done(ctx, text, d, StageFallback)
		}
		errs = append(errs, err)
	}

	result := Extraction{
		Stage:  StageNone,
		Status: StatusFailed,
		Err:    errors.Join(errs...),
	}
	if result.Err == nil {
		result.Err = ErrNoTimeDetails
	}
	p.logger.Info("could not extract booking details",
		logging.Stage(string(StageNone)), logging.Message(text), logging.Err(result.Err))
	p.metrics.RecordExtraction(ctx, string(StageNone), string(StatusFailed))
	return result
}

func (p *Pipeline) done(ctx context.Context, text string, d Details, stage Stage) Extraction {
	if strings.TrimSpace(d.Summary) == "" {
		d.Summary = ExtractSummary(text)
	}
	p.logger.Debug("extracted booking details",
		logging.Stage(string(stage)),
		slog.String("start_time", d.StartTime),
		slog.String("end_time", d.EndTime))
	p.metrics.RecordExtraction(ctx, string(stage), string(StatusComplete))
	return Extraction{Details: d, Stage: stage, Status: StatusComplete}
}
