// Package api is the REST client for the trading engine.
//
// Endpoints (relative to the configured base URL, e.g. http://127.0.0.1:8080/api/v1):
//
//	GET  /status                 engine TTL and terminal states
//	GET  /currencies             supported tickers and minimum amounts
//	GET  /trades                 trades the engine currently knows about
//	POST /trades                 submit a new order
//	POST /trades/{id}/accept     accept a remote offer
//	POST /trades/{id}/cancel     cancel with a reason
//	POST /trades/{id}/rollback   roll back a failed swap
//
// Reads are retried with jittered backoff. Trade operations are sent once.
package api
