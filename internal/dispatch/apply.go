package dispatch

import (
	"github.com/rickgao/swap-tracker/internal/history"
	"github.com/rickgao/swap-tracker/internal/model"
	"github.com/rickgao/swap-tracker/internal/registry"
)

// Apply merges one message into the registry. It must run on the goroutine
// that owns reg and hist. The returned count is the number of rows touched.
func Apply(reg *registry.Registry, hist *history.Store, msg Message) int {
	switch msg.Kind {
	case KindTradeReceived:
		tx := msg.Trade
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = msg.ReceivedAt
		}
		if tx.LastUpdateAt.IsZero() {
			tx.LastUpdateAt = msg.ReceivedAt
		}
		if reg.Upsert(tx).Kind == registry.NoticeNone {
			return 0
		}
		if hist != nil && isOffer(tx) {
			hist.MarkPending(tx.ID)
		}
		return 1

	case KindTradeStateChanged:
		return reg.SetState(msg.ID, msg.State)

	case KindTradeCancelled:
		return reg.SetCancelled(msg.ID, msg.State, msg.Reason)

	case KindCall:
		if msg.Call != nil {
			msg.Call()
		}
		return 0
	}
	return 0
}

// isOffer reports whether tx is a remote offer still open for acceptance.
func isOffer(tx model.TradeDescriptor) bool {
	return !tx.IsLocallyOwned() && (tx.State == model.StateNew || tx.State == model.StatePending)
}
