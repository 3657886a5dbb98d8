package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/llm"
	"github.com/teemow/slotbot/internal/logging"
)

// Intent is what the user wants done with a message.
type Intent string

const (
	IntentCheckAvailability Intent = "check_availability"
	IntentBookSlot          Intent = "book_slot"
	IntentUnknown           Intent = "unknown"
)

// ParseIntent maps a label to an Intent. Unrecognized labels map to IntentUnknown.
func ParseIntent(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(IntentCheckAvailability), "check", "availability", "checkavailability":
		return IntentCheckAvailability
	case string(IntentBookSlot), "book", "booking", "bookslot":
		return IntentBookSlot
	default:
		return IntentUnknown
	}
}

// IntentClassifier decides which tool, if any, handles a message.
type IntentClassifier interface {
	Classify(ctx context.Context, message string) (Intent, error)
}

// Classifier names used in metrics.
const (
	ClassifierKeyword = "keyword"
	ClassifierLLM     = "llm"
)

var (
	bookWords  = regexp.MustCompile(`(?i)\b(book|schedule|reserve|arrange|set up|fix up|make an? (appointment|booking|reservation))\b`)
	checkWords = regexp.MustCompile(`(?i)\b(available|availability|free|busy|check|occupied|taken|open slots?)\b`)
	timeTokens = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm)\b|\b\d{1,2}:\d{2}\b|\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`)
)

// KeywordClassifier is a deterministic rule-based IntentClassifier.
//
// Rules, in order:
//   - booking and availability words both present: the earlier one wins;
//   - only one kind present: that intent;
//   - a question mark with a time or date: availability;
//   - a time or date alone: booking;
//   - otherwise unknown.
type KeywordClassifier struct {
	metrics *instrumentation.Metrics
}

// NewKeywordClassifier returns a KeywordClassifier. metrics may be nil.
func NewKeywordClassifier(metrics *instrumentation.Metrics) *KeywordClassifier {
	return &KeywordClassifier{metrics: metrics}
}

// Classify implements IntentClassifier. It never returns an error.
func (c *KeywordClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	intent := classifyKeywords(message)
	c.metrics.RecordIntentClassification(ctx, ClassifierKeyword, string(intent))
	return intent, nil
}

func classifyKeywords(message string) Intent {
	book := bookWords.FindStringIndex(message)
	check := checkWords.FindStringIndex(message)

	switch {
	case book != nil && check != nil:
		if check[0] < book[0] {
			return IntentCheckAvailability
		}
		return IntentBookSlot
	case book != nil:
		return IntentBookSlot
	case check != nil:
		return IntentCheckAvailability
	}

	if timeTokens.MatchString(message) {
		if strings.Contains(message, "?") {
			return IntentCheckAvailability
		}
		return IntentBookSlot
	}
	return IntentUnknown
}

const intentSystemPrompt = `You route messages for a calendar booking assistant.
Classify the user's message into exactly one intent:

check_availability: the user asks whether a time slot is free or available
book_slot: the user wants to book, schedule or reserve an event
unknown: anything else (greetings, unrelated questions)

Reply with JSON only.`

var intentSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"intent": {
			Type:        jsonschema.String,
			Enum:        []string{string(IntentCheckAvailability), string(IntentBookSlot), string(IntentUnknown)},
			Description: "The classified intent",
		},
	},
	Required:             []string{"intent"},
	AdditionalProperties: false,
}

// LLMClassifier asks a language model for the intent and falls back to a
// KeywordClassifier when the call or its reply fails.
type LLMClassifier struct {
	completer llm.Completer
	fallback  IntentClassifier
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
}

// NewLLMClassifier returns an LLMClassifier using completer.
func NewLLMClassifier(completer llm.Completer, metrics *instrumentation.Metrics, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{
		completer: completer,
		fallback:  NewKeywordClassifier(metrics),
		metrics:   metrics,
		logger:    logger,
	}
}

// Classify implements IntentClassifier.
func (c *LLMClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	intent, err := c.classifyLLM(ctx, message)
	if err != nil {
		c.logger.Warn("LLM intent classification failed, using fallback",
			logging.Err(err),
			logging.Message(message))
		return c.fallback.Classify(ctx, message)
	}
	c.metrics.RecordIntentClassification(ctx, ClassifierLLM, string(intent))
	return intent, nil
}

func (c *LLMClassifier) classifyLLM(ctx context.Context, message string) (Intent, error) {
	zero := float32(0)
	reply, err := c.completer.Complete(ctx, llm.Request{
		System:      intentSystemPrompt,
		Prompt:      message,
		Schema:      intentSchema,
		SchemaName:  "intent_classification",
		Temperature: &zero,
	})
	if err != nil {
		return IntentUnknown, err
	}

	var raw struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(llm.StripCodeFence(reply)), &raw); err != nil {
		return IntentUnknown, fmt.Errorf("parse intent reply: %w", err)
	}
	return ParseIntent(raw.Intent), nil
}
