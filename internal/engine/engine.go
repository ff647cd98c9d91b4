package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/swap-tracker/internal/model"
)

// DefaultTTL is used when the engine does not report one.
const DefaultTTL = 2 * time.Hour

// Errors
var (
	// ErrInvalidAmount is returned before any engine call when an amount is
	// below the currency minimum or cannot be represented.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotFound is returned when the engine does not know the trade.
	ErrNotFound = errors.New("trade not found by engine")
)

// Error is an engine failure passed through to the caller unchanged.
type Error struct {
	Op         string // "submit", "accept", "cancel", "rollback"
	StatusCode int    // HTTP status, 0 for transport failures
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("engine %s failed (%s): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("engine %s failed: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Listener receives trade notifications on engine goroutines.
type Listener interface {
	OnTradeReceived(tx model.TradeDescriptor)
	OnTradeStateChanged(id model.TradeID, state model.State)
	OnTradeCancelled(id model.TradeID, state model.State, reason model.Reason)
}

// SubmitRequest describes a new order.
type SubmitRequest struct {
	From         string
	To           string
	FromCurrency string
	ToCurrency   string
	FromAmount   model.Amount
	ToAmount     model.Amount
}

// Engine is the trading engine as seen by the tracker. Trade operations may
// block on I/O and must not be called from the registry owner.
type Engine interface {
	SubmitTrade(ctx context.Context, req SubmitRequest) (model.TradeID, error)
	AcceptTrade(ctx context.Context, id model.TradeID, from, to string) error
	CancelTrade(ctx context.Context, id model.TradeID, reason model.Reason) error
	RollbackTrade(ctx context.Context, id model.TradeID) error

	IsHistoricState(state model.State) bool
	TTL() time.Duration
	MinAmount(currency string) (model.Amount, bool)

	Subscribe(l Listener) uuid.UUID
	Unsubscribe(id uuid.UUID)
}
