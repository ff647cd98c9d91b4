package dispatch

import (
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

// Kind identifies the notification a Message carries.
type Kind int

const (
	KindTradeReceived Kind = iota + 1
	KindTradeStateChanged
	KindTradeCancelled
	// KindCall carries a closure posted to the owner goroutine.
	KindCall
)

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k Kind) String() string {
	switch k {
	case KindTradeReceived:
		return "trade_received"
	case KindTradeStateChanged:
		return "trade_state_changed"
	case KindTradeCancelled:
		return "trade_cancelled"
	case KindCall:
		return "call"
	default:
		return "unknown"
	}
}

// Message is an immutable copy of one engine notification. Only the fields
// relevant to Kind are set.
type Message struct {
	Kind       Kind                  `json:"kind"`
	Trade      model.TradeDescriptor `json:"trade,omitzero"` // KindTradeReceived
	ID         model.TradeID         `json:"id,omitzero"`    // KindTradeStateChanged, KindTradeCancelled
	State      model.State           `json:"state,omitzero"`
	Reason     model.Reason          `json:"reason,omitzero"`
	Call       func()                `json:"-"` // KindCall
	ReceivedAt time.Time             `json:"received_at"`
}
