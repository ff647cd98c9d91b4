package dispatch

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

// DefaultMailboxSize is the initial mailbox capacity.
const DefaultMailboxSize = 256

// Dispatcher receives engine callbacks on arbitrary goroutines and queues
// them for the owner. None of its callbacks block.
type Dispatcher struct {
	mailbox *Mailbox[Message]
	logger  *slog.Logger
	now     func() time.Time

	dropped atomic.Int64
}

// New creates a Dispatcher with the given initial mailbox capacity.
func New(size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		mailbox: NewMailbox[Message](size),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OnTradeReceived queues a copy of a new or updated trade.
func (d *Dispatcher) OnTradeReceived(tx model.TradeDescriptor) {
	d.enqueue(Message{Kind: KindTradeReceived, Trade: tx, ID: tx.ID, State: tx.State})
}

// OnTradeStateChanged queues a state change.
func (d *Dispatcher) OnTradeStateChanged(id model.TradeID, state model.State) {
	d.enqueue(Message{Kind: KindTradeStateChanged, ID: id, State: state})
}

// OnTradeCancelled queues a cancellation.
func (d *Dispatcher) OnTradeCancelled(id model.TradeID, state model.State, reason model.Reason) {
	d.enqueue(Message{Kind: KindTradeCancelled, ID: id, State: state, Reason: reason})
}

// Post queues fn to run on the owner goroutine. It returns false after Close.
func (d *Dispatcher) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	return d.enqueue(Message{Kind: KindCall, Call: fn})
}

// Ready is signalled after messages are queued.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.mailbox.Ready()
}

// Drain removes all queued messages in arrival order.
func (d *Dispatcher) Drain() []Message {
	return d.mailbox.DrainTo(0)
}

// Close stops accepting messages. Later callbacks are dropped.
func (d *Dispatcher) Close() {
	d.mailbox.Close()
}

// Stats returns mailbox statistics and the number of dropped messages.
func (d *Dispatcher) Stats() (MailboxStats, int64) {
	return d.mailbox.Stats(), d.dropped.Load()
}

func (d *Dispatcher) enqueue(msg Message) bool {
	msg.ReceivedAt = d.now()
	if !d.mailbox.Send(msg) {
		d.dropped.Add(1)
		d.logger.Debug("dispatcher closed, dropping message", "kind", msg.Kind.String(), "id", msg.ID.Short())
		return false
	}
	return true
}
