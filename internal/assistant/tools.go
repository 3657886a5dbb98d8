package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/slotbot/internal/booking"
	"github.com/teemow/slotbot/internal/calendar"
	"github.com/teemow/slotbot/internal/instrumentation"
)

// Tool names as exposed to clients.
const (
	ToolCheckAvailability = "CheckAvailability"
	ToolBookSlot          = "BookSlot"
)

// Replies shown to the user.
const (
	MsgAvailable    = "Slot is available."
	MsgNotAvailable = "Slot is not available."
	MsgClarify      = "Sorry, I couldn't extract the required time details from your request."
	MsgApology      = "Sorry, there was an error processing your request. Please try again later."
	MsgHelp         = "I can check whether a time slot is free or book an appointment for you. " +
		"Try \"Is 04-07-2025 3:00 pm free?\" or " +
		"\"Book a meeting with my friend at 3:00 pm on 04-07-2025 for 2 hours\"."

	msgBooked          = "Your appointment has been booked. You can view it here: %s"
	msgCheckFailed     = "Error checking availability: %v"
	msgBookFailed      = "Error booking slot: %v"
	msgOccupied        = "Error: The time slot is occupied by: %s"
	checkAvailabilityD = "Checks Google Calendar for available slots. Input can be a date or time range."
	bookSlotD          = "Books a slot in Google Calendar. Input can be natural language " +
		"(e.g., 'Book a meeting with my friend at 3:00 pm to 4:00 pm at 04-07-2025')."
)

// Extractor turns a message into booking details.
// *booking.Pipeline implements it.
type Extractor interface {
	Extract(ctx context.Context, text string) booking.Extraction
}

// Booker checks and books slots.
// *booking.Service implements it.
type Booker interface {
	CheckAvailability(ctx context.Context, startTime, endTime string) (*booking.Availability, error)
	BookSlot(ctx context.Context, startTime, endTime, summary string) (*calendar.Event, error)
}

// Reply is the result of running a tool.
type Reply struct {
	// Text is what the user sees.
	Text string

	Stage   booking.Stage
	Outcome string

	// Err is the failure behind Text, if any. It has already been rendered.
	Err error
}

// Tool is an assistant capability. Tools take the raw user message and run
// their own extraction.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, message string) Reply
}

// Registry holds the assistant tools keyed by intent.
type Registry struct {
	byIntent map[Intent]Tool
	ordered  []Tool
}

// NewRegistry returns the two-tool registry backed by extractor and booker.
func NewRegistry(extractor Extractor, booker Booker) *Registry {
	check := &checkAvailabilityTool{extractor: extractor, booker: booker}
	book := &bookSlotTool{extractor: extractor, booker: booker}
	return &Registry{
		byIntent: map[Intent]Tool{
			IntentCheckAvailability: check,
			IntentBookSlot:          book,
		},
		ordered: []Tool{check, book},
	}
}

// Tools returns the registered tools in a stable order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ForIntent returns the tool handling intent.
func (r *Registry) ForIntent(intent Intent) (Tool, bool) {
	t, ok := r.byIntent[intent]
	return t, ok
}

// Lookup returns the tool with the given name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	for _, t := range r.ordered {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

type checkAvailabilityTool struct {
	extractor Extractor
	booker    Booker
}

func (t *checkAvailabilityTool) Name() string        { return ToolCheckAvailability }
func (t *checkAvailabilityTool) Description() string { return checkAvailabilityD }

func (t *checkAvailabilityTool) Run(ctx context.Context, message string) Reply {
	ext := t.extractor.Extract(ctx, message)
	if !ext.Complete() {
		return Reply{Text: MsgClarify, Stage: ext.Stage, Outcome: instrumentation.OutcomeInvalid, Err: ext.Err}
	}

	avail, err := t.booker.CheckAvailability(ctx, ext.Details.StartTime, ext.Details.EndTime)
	if err != nil {
		return Reply{
			Text:    fmt.Sprintf(msgCheckFailed, err),
			Stage:   ext.Stage,
			Outcome: outcomeFor(err),
			Err:     err,
		}
	}
	if avail.Available {
		return Reply{Text: MsgAvailable, Stage: ext.Stage, Outcome: instrumentation.OutcomeAvailable}
	}
	return Reply{Text: MsgNotAvailable, Stage: ext.Stage, Outcome: instrumentation.OutcomeOccupied}
}

type bookSlotTool struct {
	extractor Extractor
	booker    Booker
}

func (t *bookSlotTool) Name() string        { return ToolBookSlot }
func (t *bookSlotTool) Description() string { return bookSlotD }

func (t *bookSlotTool) Run(ctx context.Context, message string) Reply {
	ext := t.extractor.Extract(ctx, message)
	if !ext.Complete() {
		return Reply{Text: MsgClarify, Stage: ext.Stage, Outcome: instrumentation.OutcomeInvalid, Err: ext.Err}
	}

	d := ext.Details
	event, err := t.booker.BookSlot(ctx, d.StartTime, d.EndTime, d.Summary)
	if err != nil {
		reply := Reply{Stage: ext.Stage, Outcome: outcomeFor(err), Err: err}
		var conflict *booking.ConflictError
		if errors.As(err, &conflict) {
			reply.Text = fmt.Sprintf(msgOccupied, conflict.Names())
		} else {
			reply.Text = fmt.Sprintf(msgBookFailed, err)
		}
		return reply
	}
	return Reply{
		Text:    fmt.Sprintf(msgBooked, event.HTMLLink),
		Stage:   ext.Stage,
		Outcome: instrumentation.OutcomeBooked,
	}
}

func outcomeFor(err error) string {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		return instrumentation.OutcomeConflict
	case errors.Is(err, booking.ErrInvalidInterval), errors.Is(err, booking.ErrUnparseableTime):
		return instrumentation.OutcomeInvalid
	default:
		return instrumentation.OutcomeError
	}
}
