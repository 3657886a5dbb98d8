package booking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// FallbackSummary is the title used when nothing meaningful is left of a message.
const FallbackSummary = "Appointment"

const clockPattern = `\d{1,2}(?::\d{2})?(?:\s*(?:am|pm)\b)?`

// Applied in order: later patterns assume the clock times are already gone.
// The clock pattern requires a space, punctuation or the end of text after the
// time, so the day of a numeric date ("at 04-07-2025") is not taken for an
// hour. A range such as "3:00pm-4:00pm" is removed as one clock. The
// separator is captured and written back on replacement.
var summaryPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\b(?:at|from|to)\b\s*` + clockPattern + `(?:\s*-\s*` + clockPattern + `)?(\s|[,.;!?]|$)`), "${1}"},
	{regexp.MustCompile(`(?i)(?:\b(?:at|on)\s+)?\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`), ""},
	{regexp.MustCompile(`(?i)(?:\bon\s+)?\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b\s*\d{1,2}(?:st|nd|rd|th)?`), ""},
	{regexp.MustCompile(`(?i)for\s+\d+\s*hours?`), ""},
}

// ExtractSummary strips clock times, numeric dates, month-day phrases and
// durations from text and returns what is left as an event title.
func ExtractSummary(text string) string {
	for _, p := range summaryPatterns {
		text = p.re.ReplaceAllString(text, p.repl)
	}
	text = strings.Trim(text, " ,.")
	if utf8.RuneCountInString(text) < 3 {
		return FallbackSummary
	}
	return text
}
