package tracker

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/swap-tracker/internal/automaton"
	"github.com/rickgao/swap-tracker/internal/dispatch"
)

// Errors
var (
	ErrStopped         = errors.New("tracker stopped")
	ErrMissingAddress  = errors.New("from and to addresses are required")
	ErrSameCurrency    = errors.New("from and to currencies must differ")
	ErrMissingCurrency = errors.New("from and to currencies are required")
)

// Config configures a Tracker.
type Config struct {
	SweepInterval time.Duration // Period of the TTL sweep
	MailboxSize   int           // Initial dispatcher mailbox capacity
	CallTimeout   time.Duration // Timeout applied to each engine call
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval: automaton.DefaultInterval,
		MailboxSize:   dispatch.DefaultMailboxSize,
		CallTimeout:   30 * time.Second,
	}
}

// Order is a request to create a new trade. Amounts are in coins and may
// carry at most 6 decimal places; finer amounts are rejected with
// engine.ErrInvalidAmount rather than rounded.
type Order struct {
	From         string
	To           string
	FromCurrency string
	ToCurrency   string
	FromAmount   decimal.Decimal
	ToAmount     decimal.Decimal
}

// Stats is a point-in-time view of the tracker.
type Stats struct {
	Rows            int
	History         int
	Pending         int
	LastSweep       automaton.Result
	LastSweepAt     time.Time
	Mailbox         dispatch.MailboxStats
	DroppedMessages int64
}
