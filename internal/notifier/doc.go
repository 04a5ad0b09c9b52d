// Package notifier delivers chat messages for the poll loop.
//
// Delivery is synchronous: Send returns only after the transport accepted
// or rejected the message, so the caller can tell "nothing changed" apart
// from "a change could not be reported". Failures come back as
// fault.KindDelivery.
//
// # Throttling
//
// A token bucket spaces out bursts (several homeworks changing at once)
// below the Bot API per-chat limit.
//
// # History
//
// For debugging and operator visibility, the service keeps a small in-memory
// history of recent attempts and, when a store is configured, appends every
// attempt to the delivery journal.
package notifier
