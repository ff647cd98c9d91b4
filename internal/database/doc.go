// Package database opens the PostgreSQL pool used by the history archive.
//
// The live registry is never stored here. Only trades that reached a
// historic state are mirrored, so the pool is small and optional.
package database
