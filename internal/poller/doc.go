// Package poller re-reads engine settings on a fixed interval.
//
// The engine may change its TTL, terminal states or currency minimums while
// the tracker runs. The poller calls Refresh periodically so the automaton
// and order validation follow those changes without a restart. Failures are
// logged and retried on the next tick.
package poller
