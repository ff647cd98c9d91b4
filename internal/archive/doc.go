// Package archive mirrors trades migrated to history into PostgreSQL.
//
// The tracker's migrate hook feeds a Writer through a non-blocking mailbox.
// The writer batches snapshots and upserts them into trade_history, keeping
// the most recently updated version of each trade. Nothing is ever read
// back into the registry.
package archive
