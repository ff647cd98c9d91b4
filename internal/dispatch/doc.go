// Package dispatch implements the Cross-Thread Event Dispatcher.
//
// Engine notifications arrive on goroutines owned by the engine. The
// Dispatcher wraps each one into an immutable Message and appends it to a
// Mailbox without blocking. The owner goroutine wakes on Ready, drains the
// mailbox and applies every message in arrival order; nothing is coalesced.
package dispatch
