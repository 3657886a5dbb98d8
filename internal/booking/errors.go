package booking

import (
	"errors"
	"strings"

	"github.com/teemow/slotbot/internal/calendar"
)

// ErrInvalidInterval is returned when a slot does not end after it starts.
var ErrInvalidInterval = errors.New("invalid interval: end must be after start")

// ConflictError is returned by BookSlot when existing events overlap the slot.
type ConflictError struct {
	Events []calendar.Event
}

// Names returns the titles of the conflicting events joined by ", ".
// Untitled events are listed as "No Title".
func (e *ConflictError) Names() string {
	names := make([]string, 0, len(e.Events))
	for _, ev := range e.Events {
		names = append(names, ev.Title())
	}
	return strings.Join(names, ", ")
}

func (e *ConflictError) Error() string {
	return "time slot is occupied by: " + e.Names()
}
