// Package assistant routes chat messages to the booking tools.
//
// A Dispatcher classifies each message with an IntentClassifier and runs the
// matching tool from a fixed registry of two: CheckAvailability and BookSlot.
// Every outcome, including failures, is rendered as a conversational reply.
package assistant
