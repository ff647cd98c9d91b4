// Package tracker runs the owner goroutine for the trade registry.
//
// One goroutine owns the registry, the history store and the sweeper. It
// wakes on the sweep ticker, on dispatcher mailbox signals and on caller
// requests, and handles them one at a time. Engine calls that can block
// (submit, accept, cancel, rollback) run on the caller's goroutine; their
// registry effects are posted back to the owner.
package tracker
