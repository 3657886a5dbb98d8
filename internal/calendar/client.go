package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/logging"
)

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	loc     *time.Location
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records calendar API operations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger used for API call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLocation sets the location used to interpret all-day event dates.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewClient creates a Calendar client authenticated with the service account
// credentials stored in credentialsFile. The client requests read/write access
// to events.
func NewClient(ctx context.Context, credentialsFile string, opts ...Option) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return NewClientWithService(svc, opts...), nil
}

// NewClientWithService creates a Client around an existing Calendar service.
func NewClientWithService(svc *calendar.Service, opts ...Option) *Client {
	c := &Client{
		svc:    svc,
		loc:    time.UTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListEvents lists the events of a calendar that intersect [timeMin, timeMax).
// Recurring events are expanded into single instances and the result is ordered
// by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) (events []Event, err error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationList, calendarID)
	defer span.End()

	start := time.Now()
	defer func() {
		c.record(ctx, instrumentation.OperationList, err, time.Since(start))
		instrumentation.SetSpanError(span, err)
	}()

	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			events = append(events, toEvent(item, c.loc))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	c.logger.Debug("listed calendar events",
		logging.CalendarID(calendarID),
		slog.Int("count", len(events)))

	return events, nil
}

// InsertEvent creates a new timed event on the calendar.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (_ *Event, err error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationInsert, calendarID)
	defer span.End()

	start := time.Now()
	defer func() {
		c.record(ctx, instrumentation.OperationInsert, err, time.Since(start))
		instrumentation.SetSpanError(span, err)
	}()

	event := &calendar.Event{
		Summary: input.Summary,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}

	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	result := toEvent(created, c.loc)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrEventID, result.ID))
	c.logger.Info("created calendar event",
		logging.CalendarID(calendarID),
		slog.String("event_id", result.ID))

	return &result, nil
}

func (c *Client) record(ctx context.Context, operation string, err error, d time.Duration) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordCalendarOperation(ctx, operation, status, d)
}
