// Package logging provides structured logging utilities for slotbot.
//
// This package centralizes logging patterns so that every component logs with the
// same attribute names, using the standard library's slog package.
//
// # Key Features
//
//   - Handler construction from a level and a format (text or json)
//   - Consistent attribute naming (operation, tool, intent, stage, calendar)
//   - Truncation of user messages before they reach the log stream
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "booking.book_slot")
//	logger.Info("slot booked",
//	    logging.CalendarID(calendarID),
//	    logging.Status(logging.StatusSuccess))
//
// User text is free-form and may contain personal details, so log it through
// Message, which truncates:
//
//	logger.Debug("chat request received", logging.Message(msg))
package logging
