package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/swap-tracker/internal/api"
	"github.com/rickgao/swap-tracker/internal/connection"
	"github.com/rickgao/swap-tracker/internal/model"
)

var (
	_ Engine             = (*Remote)(nil)
	_ connection.Handler = (*Remote)(nil)
)

// RemoteConfig configures a Remote engine.
type RemoteConfig struct {
	TTL         time.Duration           // Overrides the engine-reported TTL when > 0
	MinAmounts  map[string]model.Amount // Override engine minimums per ticker
	Stream      connection.StreamConfig
	SyncTimeout time.Duration // Timeout for the trade snapshot taken on (re)connect
}

// Remote is an Engine backed by the engine's REST API and notification
// stream.
type Remote struct {
	client *api.Client
	stream *connection.Stream
	cfg    RemoteConfig
	logger *slog.Logger

	mu         sync.RWMutex
	listeners  map[uuid.UUID]Listener
	ttl        time.Duration
	historic   map[model.State]bool // nil = model default classifier
	minAmounts map[string]model.Amount

	runCtx context.Context
}

// NewRemote creates a Remote. Call Refresh and Run to start it.
func NewRemote(client *api.Client, cfg RemoteConfig, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 30 * time.Second
	}

	r := &Remote{
		client:     client,
		cfg:        cfg,
		logger:     logger,
		listeners:  make(map[uuid.UUID]Listener),
		ttl:        DefaultTTL,
		minAmounts: make(map[string]model.Amount),
		runCtx:     context.Background(),
	}
	if cfg.TTL > 0 {
		r.ttl = cfg.TTL
	}
	for ticker, minAmount := range cfg.MinAmounts {
		r.minAmounts[ticker] = minAmount
	}

	streamCfg := cfg.Stream
	streamCfg.OnConnect = r.resync
	r.stream = connection.NewStream(streamCfg, r, logger.With("component", "stream"))
	return r
}

// Refresh loads the TTL, terminal states and currency minimums from the
// engine. Configured overrides win.
func (r *Remote) Refresh(ctx context.Context) error {
	status, err := r.client.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("refresh engine status: %w", err)
	}
	currencies, err := r.client.GetCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("refresh currencies: %w", err)
	}

	var historic map[model.State]bool
	for _, name := range status.HistoricStates {
		state, err := model.ParseState(name)
		if err != nil {
			r.logger.Warn("ignoring unknown historic state", "state", name)
			continue
		}
		if historic == nil {
			historic = make(map[model.State]bool)
		}
		historic[state] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.TTL <= 0 && status.TTLSeconds > 0 {
		r.ttl = time.Duration(status.TTLSeconds) * time.Second
	}
	r.historic = historic

	for _, c := range currencies {
		if _, ok := r.cfg.MinAmounts[c.Ticker]; ok {
			continue
		}
		minAmount, err := model.ParseAmount(c.MinAmount)
		if err != nil {
			r.logger.Warn("ignoring currency minimum", "ticker", c.Ticker, "min_amount", c.MinAmount, "error", err)
			continue
		}
		r.minAmounts[c.Ticker] = minAmount
	}

	r.logger.Info("engine status loaded",
		"version", status.Version,
		"ttl", r.ttl,
		"currencies", len(r.minAmounts),
	)
	return nil
}

// Run reads the notification stream until ctx is cancelled.
func (r *Remote) Run(ctx context.Context) error {
	r.mu.Lock()
	r.runCtx = ctx
	r.mu.Unlock()
	return r.stream.Run(ctx)
}

// StreamStats returns notification stream statistics.
func (r *Remote) StreamStats() connection.StreamStats {
	return r.stream.Stats()
}

// SubmitTrade places a new order.
func (r *Remote) SubmitTrade(ctx context.Context, req SubmitRequest) (model.TradeID, error) {
	raw, err := r.client.SubmitTrade(ctx, api.SubmitTradeRequest{
		From:         req.From,
		To:           req.To,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   req.FromAmount.String(),
		ToAmount:     req.ToAmount.String(),
	})
	if err != nil {
		return model.TradeID{}, wrapError("submit", err)
	}

	id, err := model.ParseTradeID(raw)
	if err != nil {
		return model.TradeID{}, &Error{Op: "submit", Message: "engine returned a malformed id", Err: err}
	}
	return id, nil
}

// AcceptTrade accepts a remote offer.
func (r *Remote) AcceptTrade(ctx context.Context, id model.TradeID, from, to string) error {
	return wrapError("accept", r.client.AcceptTrade(ctx, id.String(), from, to))
}

// CancelTrade cancels a trade.
func (r *Remote) CancelTrade(ctx context.Context, id model.TradeID, reason model.Reason) error {
	return wrapError("cancel", r.client.CancelTrade(ctx, id.String(), reason.String()))
}

// RollbackTrade rolls back a trade.
func (r *Remote) RollbackTrade(ctx context.Context, id model.TradeID) error {
	return wrapError("rollback", r.client.RollbackTrade(ctx, id.String()))
}

// IsHistoricState reports whether state is terminal for this engine.
func (r *Remote) IsHistoricState(state model.State) bool {
	r.mu.RLock()
	historic := r.historic
	r.mu.RUnlock()

	if historic == nil {
		return state.IsHistoric()
	}
	return historic[state]
}

// TTL returns the trade time-to-live.
func (r *Remote) TTL() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ttl
}

// MinAmount returns the minimum order size for a ticker.
func (r *Remote) MinAmount(currency string) (model.Amount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	minAmount, ok := r.minAmounts[currency]
	return minAmount, ok
}

// Subscribe registers a listener and returns its handle.
func (r *Remote) Subscribe(l Listener) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.listeners[id] = l
	r.mu.Unlock()
	return id
}

// Unsubscribe removes a listener. Unknown handles are ignored.
func (r *Remote) Unsubscribe(id uuid.UUID) {
	r.mu.Lock()
	delete(r.listeners, id)
	r.mu.Unlock()
}

// OnTradeReceived fans a stream notification out to listeners.
func (r *Remote) OnTradeReceived(tx model.TradeDescriptor) {
	for _, l := range r.snapshotListeners() {
		l.OnTradeReceived(tx)
	}
}

// OnTradeStateChanged fans a stream notification out to listeners.
func (r *Remote) OnTradeStateChanged(id model.TradeID, state model.State) {
	for _, l := range r.snapshotListeners() {
		l.OnTradeStateChanged(id, state)
	}
}

// OnTradeCancelled fans a stream notification out to listeners.
func (r *Remote) OnTradeCancelled(id model.TradeID, state model.State, reason model.Reason) {
	for _, l := range r.snapshotListeners() {
		l.OnTradeCancelled(id, state, reason)
	}
}

func (r *Remote) snapshotListeners() []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		out = append(out, l)
	}
	return out
}

// resync replays the engine's current trades as received notifications.
// It runs on the stream goroutine, ahead of any later deltas.
func (r *Remote) resync() {
	r.mu.RLock()
	parent := r.runCtx
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(parent, r.cfg.SyncTimeout)
	defer cancel()

	trades, err := r.client.GetTrades(ctx)
	if err != nil {
		r.logger.Warn("trade resync failed", "error", err)
		return
	}

	replayed := 0
	for _, wire := range trades {
		tx, err := api.ToDescriptor(wire)
		if err != nil {
			r.logger.Warn("skipping trade in resync", "id", wire.ID, "error", err)
			continue
		}
		r.OnTradeReceived(tx)
		replayed++
	}
	r.logger.Debug("trades resynced", "count", replayed)
}

// wrapError converts a client failure into an engine error.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	e := &Error{Op: op, Message: err.Error(), Err: err}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		e.StatusCode = apiErr.StatusCode
		e.Code = apiErr.Code
		e.Message = apiErr.Message
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			e.Err = ErrNotFound
		case apiErr.Code == "invalid_amount":
			e.Err = ErrInvalidAmount
		}
	}
	return e
}
