// Package automaton implements the TTL State Automaton.
//
// Each sweep walks the active registry and, per trade, applies the first
// matching rule:
//   - New for longer than TTL/60           -> Offline
//   - Pending for longer than TTL/6        -> Expired
//   - Expired or Offline, active in TTL/6  -> Pending
//   - Expired for longer than TTL          -> removed (not archived)
//
// Every remaining trade in a historic state is then migrated into the
// history store. Thresholds are recomputed from scratch on every sweep.
package automaton
