// Package booking turns free-text booking requests into calendar operations.
//
// The pipeline has four parts:
//
//   - Normalizer attaches the default location to timestamps that carry no offset.
//   - ExtractSummary strips date and time phrases from a message to get an event title.
//   - Extractor runs the LLM stage and, when it yields nothing usable, the
//     deterministic fallback stage. The result is a typed Extraction.
//   - Service checks availability and books slots against an injected Calendar.
//
// Slots are half-open intervals [start, end). Check-then-insert in BookSlot is
// not atomic: two concurrent requests for the same slot can both succeed.
package booking
