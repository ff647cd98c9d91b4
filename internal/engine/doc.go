// Package engine defines the boundary to the external trading engine.
//
// Engine is what the tracker consumes: trade operations, the TTL, the
// terminal-state classifier, per-currency minimum amounts and notification
// subscriptions. Remote implements it over the engine's REST API and
// notification stream.
package engine
