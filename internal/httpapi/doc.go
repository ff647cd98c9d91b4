// Package httpapi exposes the tracker over HTTP with gin.
//
// Endpoints:
//
//	GET  /health                 - build info, tracker and stream stats
//	GET  /v1/trades              - rendered registry rows
//	GET  /v1/trades/:id          - one registry row
//	GET  /v1/history             - migrated snapshots
//	POST /v1/trades              - submit a new order
//	POST /v1/trades/:id/accept   - accept a pending remote offer
//	POST /v1/trades/:id/cancel   - cancel a trade
//	POST /v1/trades/:id/rollback - roll back a trade
//
// Every response uses the Response envelope. All registry access goes
// through the tracker's owner goroutine.
package httpapi
