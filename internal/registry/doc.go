// Package registry implements the Transaction Registry.
//
// The Registry:
//   - Holds the ordered list of active trade descriptors (newest first)
//   - Merges engine notifications into existing rows (Upsert, SetState, SetCancelled)
//   - Converts remote offers into locally accepted trades (AcceptPendingOffer)
//   - Notifies observers of inserted, changed and removed rows synchronously
//
// A Registry has no internal locking. It must be owned and mutated by a
// single goroutine; see package tracker.
package registry
