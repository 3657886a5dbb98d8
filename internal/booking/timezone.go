package booking

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/slotbot/internal/logging"
)

// DefaultTimezone is the location attached to timestamps without an offset.
const DefaultTimezone = "Asia/Kolkata"

// ErrUnparseableTime is returned by Normalizer.Parse for unrecognized input.
var ErrUnparseableTime = errors.New("unrecognized datetime format")

// Layouts carrying an explicit offset. Fractional seconds are accepted by
// time.Parse even though the layouts do not spell them out.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

// Layouts without an offset; the default location is attached.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalizer makes datetime strings offset-qualified.
type Normalizer struct {
	loc    *time.Location
	logger *slog.Logger
}

// NewNormalizer returns a Normalizer attaching loc to offset-less input.
// A nil loc means UTC; a nil logger means slog.Default().
func NewNormalizer(loc *time.Location, logger *slog.Logger) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{loc: loc, logger: logger}
}

// Location returns the default location.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Parse parses s in one of the recognized layouts. Values with an offset keep
// it; values without one are read as wall-clock time in the default location.
func (n *Normalizer) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTime, s)
}

// Ensure returns s as an RFC 3339 string with an offset. Input that cannot
// be parsed is returned unchanged and a warning is logged.
func (n *Normalizer) Ensure(s string) string {
	t, err := n.Parse(s)
	if err != nil {
		n.logger.Warn("could not normalize timezone", slog.String("value", s), logging.Err(err))
		return s
	}
	return t.Format(time.RFC3339Nano)
}
