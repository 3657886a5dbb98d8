package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/slotbot/internal/calendar"
	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/logging"
)

// Calendar is the external calendar capability the Service depends on.
// *calendar.Client implements it.
type Calendar interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.Event, error)
	InsertEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.Event, error)
}

// Availability is the answer to an availability check.
type Availability struct {
	Available bool
	// Events are the events found in the window, ordered by start time.
	Events []calendar.Event
}

// Service checks and books slots on one calendar.
type Service struct {
	cal        Calendar
	calendarID string
	norm       *Normalizer
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceMetrics records booking outcomes on m.
func WithServiceMetrics(m *instrumentation.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService returns a Service working on calendarID through cal.
func NewService(cal Calendar, calendarID string, norm *Normalizer, opts ...ServiceOption) *Service {
	if norm == nil {
		norm = NewNormalizer(nil, nil)
	}
	s := &Service{
		cal:        cal,
		calendarID: calendarID,
		norm:       norm,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithOperation(s.logger, "booking").With(logging.CalendarID(calendarID))
	return s
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Adjacent intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// window normalizes and parses a start/end pair.
func (s *Service) window(startTime, endTime string) (time.Time, time.Time, error) {
	start, err := s.norm.Parse(s.norm.Ensure(startTime))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := s.norm.Parse(s.norm.Ensure(endTime))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	return start, end, nil
}

// CheckAvailability reports whether any event intersects [startTime, endTime).
// Any event in the window makes the slot unavailable; partial availability is
// not computed.
func (s *Service) CheckAvailability(ctx context.Context, startTime, endTime string) (*Availability, error) {
	start, end, err := s.window(startTime, endTime)
	if err != nil {
		s.metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeInvalid)
		return nil, err
	}

	events, err := s.cal.ListEvents(ctx, s.calendarID, start, end)
	if err != nil {
		s.logger.Error("availability check failed", logging.Err(err))
		s.metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeError)
		return nil, err
	}

	result := &Availability{Available: len(events) == 0, Events: events}
	outcome := instrumentation.OutcomeAvailable
	if !result.Available {
		outcome = instrumentation.OutcomeOccupied
	}
	s.metrics.RecordBookingOutcome(ctx, outcome)
	s.logger.Debug("availability checked",
		slog.Bool("available", result.Available),
		slog.Int("events", len(events)))

	return result, nil
}

// BookSlot creates an event for [startTime, endTime) unless an existing event
// overlaps it, in which case a *ConflictError is returned and nothing is
// inserted.
func (s *Service) BookSlot(ctx context.Context, startTime, endTime, summary string) (*calendar.Event, error) {
	start, end, err := s.window(startTime, endTime)
	if err != nil {
		s.metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeInvalid)
		return nil, err
	}

	events, err := s.cal.ListEvents(ctx, s.calendarID, start, end)
	if err != nil {
		s.logger.Error("conflict check failed", logging.Err(err))
		s.metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeError)
		return nil, err
	}

	var conflicts []calendar.Event
	for _, ev := range events {
		// An event without readable bounds was still returned for this window.
		if ev.Start.IsZero() || ev.End.IsZero() || Overlaps(start, end, ev.Start, ev.End) {
			conflicts = append(conflicts, ev)
		}
	}
	if len(conflicts) > 0 {
		s.metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeConflict)
		conflict := &ConflictError{Events: conflicts}
		s.logger.Info("slot occupied", slog.String("conflicts", conflict.Names()))
		return nil, conflict
	}

	if summary == "" {
		summary = FallbackSummary
	}
	created, err := s.cal.InsertEvent(ctx, s.calendarID, calendar.EventInput{
		Summary:  summary,
		Start:    start,
		End:      end,
		TimeZone: s.norm.Location().String(),
	})
	if err != nil {
		s.logger.Error("booking failed", logging.Err(err))
		s.metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeError)
		return nil, err
	}

	s.metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeBooked)
	s.logger.Info("slot booked", slog.String("event_id", created.ID))
	return created, nil
}
