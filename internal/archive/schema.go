package archive

import (
	"context"
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS trade_history (
	id             TEXT PRIMARY KEY,
	hub            TEXT NOT NULL DEFAULT '',
	from_address   TEXT NOT NULL DEFAULT '',
	to_address     TEXT NOT NULL DEFAULT '',
	from_currency  TEXT NOT NULL,
	to_currency    TEXT NOT NULL,
	from_amount    NUMERIC(30, 6) NOT NULL,
	to_amount      NUMERIC(30, 6) NOT NULL,
	state          TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	last_update_at TIMESTAMPTZ NOT NULL,
	archived_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trade_history_last_update_idx ON trade_history (last_update_at);
`

const upsertSQL = `
	INSERT INTO trade_history (id, hub, from_address, to_address, from_currency, to_currency,
		from_amount, to_amount, state, reason, created_at, last_update_at, archived_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		hub = EXCLUDED.hub,
		from_address = EXCLUDED.from_address,
		to_address = EXCLUDED.to_address,
		from_currency = EXCLUDED.from_currency,
		to_currency = EXCLUDED.to_currency,
		from_amount = EXCLUDED.from_amount,
		to_amount = EXCLUDED.to_amount,
		state = EXCLUDED.state,
		reason = EXCLUDED.reason,
		last_update_at = EXCLUDED.last_update_at,
		archived_at = EXCLUDED.archived_at
	WHERE trade_history.last_update_at <= EXCLUDED.last_update_at
`

// EnsureSchema creates the trade_history table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create trade_history: %w", err)
	}
	return nil
}
