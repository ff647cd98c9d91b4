package archive

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Config contains configuration for the archive writer.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of the input mailbox.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1024,
	}
}

// DB is the subset of *pgxpool.Pool the writer uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// historyRow represents a row to be upserted into trade_history.
type historyRow struct {
	ID           string // hex
	Hub          string
	FromAddress  string
	ToAddress    string
	FromCurrency string
	ToCurrency   string
	FromAmount   string // decimal coins
	ToAmount     string
	State        string
	Reason       string
	CreatedAt    time.Time
	LastUpdateAt time.Time
	ArchivedAt   time.Time
}

// Metrics holds counters for the writer.
type Metrics struct {
	Enqueued  int64     `json:"enqueued"`
	Dropped   int64     `json:"dropped"` // Sent after Stop
	Inserts   int64     `json:"inserts"` // Rows inserted or updated
	Stale     int64     `json:"stale"`   // Rows skipped because a newer snapshot was stored
	Errors    int64     `json:"errors"`
	Flushes   int64     `json:"flushes"`
	LastFlush time.Time `json:"last_flush"`
}
