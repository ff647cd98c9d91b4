package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/swap-tracker/internal/automaton"
	"github.com/rickgao/swap-tracker/internal/dispatch"
	"github.com/rickgao/swap-tracker/internal/engine"
	"github.com/rickgao/swap-tracker/internal/history"
	"github.com/rickgao/swap-tracker/internal/model"
	"github.com/rickgao/swap-tracker/internal/registry"
)

// Tracker owns the registry and reconciles engine notifications into it.
type Tracker struct {
	cfg    Config
	engine engine.Engine
	logger *slog.Logger
	now    func() time.Time

	// Owned by the Run goroutine.
	reg         *registry.Registry
	hist        *history.Store
	sweeper     *automaton.Sweeper
	lastSweep   automaton.Result
	lastSweepAt time.Time

	dispatcher *dispatch.Dispatcher
	requests   chan func()
	subscribed chan struct{}
	done       chan struct{}
	running    atomic.Bool
}

// New creates a Tracker for eng. Call Run to start it.
func New(eng engine.Engine, cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = defaults.MailboxSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaults.CallTimeout
	}

	reg := registry.New()
	hist := history.NewStore()

	return &Tracker{
		cfg:        cfg,
		engine:     eng,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		reg:        reg,
		hist:       hist,
		sweeper:    automaton.NewSweeper(reg, hist, eng, logger.With("component", "sweeper")),
		dispatcher: dispatch.New(cfg.MailboxSize, logger.With("component", "dispatcher")),
		requests:   make(chan func()),
		subscribed: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetMigrateHook sets the function called with each snapshot migrated to
// history. The hook runs on the owner goroutine and must not block. Call
// before Run.
func (t *Tracker) SetMigrateHook(hook automaton.MigrateHook) {
	t.sweeper.SetMigrateHook(hook)
}

// AddObserver registers a registry observer. Observers are called on the
// owner goroutine. Call before Run.
func (t *Tracker) AddObserver(o registry.Observer) {
	t.reg.AddObserver(o)
}

// Run subscribes to the engine and processes events until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return errors.New("tracker already running")
	}
	defer close(t.done)

	sub := t.engine.Subscribe(t.dispatcher)
	defer t.engine.Unsubscribe(sub)
	close(t.subscribed)

	t.logger.Info("tracker started",
		"sweep_interval", t.cfg.SweepInterval,
		"ttl", t.engine.TTL(),
		"subscription", sub,
	)

	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.dispatcher.Close()
			t.drain()
			t.logger.Info("tracker stopped", "rows", t.reg.Len(), "history", t.hist.Len())
			return nil

		case <-ticker.C:
			t.sweep()

		case <-t.dispatcher.Ready():
			t.drain()

		case fn := <-t.requests:
			fn()
		}
	}
}

func (t *Tracker) sweep() {
	t.lastSweep = t.sweeper.Sweep(t.now())
	t.lastSweepAt = t.now()
}

func (t *Tracker) drain() {
	for _, msg := range t.dispatcher.Drain() {
		dispatch.Apply(t.reg, t.hist, msg)
	}
}

// Subscribed is closed once Run has registered with the engine. Start the
// engine's notification source after it to avoid missing the first events.
func (t *Tracker) Subscribed() <-chan struct{} {
	return t.subscribed
}

// Do runs fn on the owner goroutine and waits for it to finish. fn must not
// call back into the Tracker.
func (t *Tracker) Do(ctx context.Context, fn func(reg *registry.Registry, hist *history.Store)) error {
	finished := make(chan struct{})
	req := func() {
		defer close(finished)
		fn(t.reg, t.hist)
	}

	select {
	case t.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rows returns a copy of the registry in display order.
func (t *Tracker) Rows(ctx context.Context) ([]model.TradeDescriptor, error) {
	var rows []model.TradeDescriptor
	err := t.Do(ctx, func(reg *registry.Registry, _ *history.Store) {
		rows = reg.Rows()
	})
	return rows, err
}

// Trade returns the first registry row for id.
func (t *Tracker) Trade(ctx context.Context, id model.TradeID) (model.TradeDescriptor, error) {
	var (
		d     model.TradeDescriptor
		found bool
	)
	err := t.Do(ctx, func(reg *registry.Registry, _ *history.Store) {
		var i int
		if i, found = reg.Find(id); found {
			d = reg.Get(i)
		}
	})
	if err != nil {
		return model.InvalidDescriptor(), err
	}
	if !found {
		return model.InvalidDescriptor(), registry.ErrNotFound
	}
	return d, nil
}

// History returns the migrated snapshots, most recent first.
func (t *Tracker) History(ctx context.Context) ([]model.TradeDescriptor, error) {
	var out []model.TradeDescriptor
	err := t.Do(ctx, func(_ *registry.Registry, hist *history.Store) {
		out = hist.Snapshots()
	})
	return out, err
}

// Stats returns tracker statistics.
func (t *Tracker) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := t.Do(ctx, func(reg *registry.Registry, hist *history.Store) {
		s.Rows = reg.Len()
		s.History = hist.Len()
		s.Pending = hist.PendingLen()
		s.LastSweep = t.lastSweep
		s.LastSweepAt = t.lastSweepAt
	})
	s.Mailbox, s.DroppedMessages = t.dispatcher.Stats()
	return s, err
}

// Submit validates an order, places it with the engine and records the new
// locally owned trade. Amounts below the engine minimum for the source
// currency fail with engine.ErrInvalidAmount without calling the engine.
func (t *Tracker) Submit(ctx context.Context, o Order) (model.TradeID, error) {
	req, err := t.validate(o)
	if err != nil {
		return model.TradeID{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.CallTimeout)
	defer cancel()

	id, err := t.engine.SubmitTrade(callCtx, req)
	if err != nil {
		return model.TradeID{}, err
	}

	now := t.now()
	d := model.TradeDescriptor{
		ID:           id,
		From:         req.From,
		To:           req.To,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   req.FromAmount,
		ToAmount:     req.ToAmount,
		State:        model.StateNew,
		CreatedAt:    now,
		LastUpdateAt: now,
	}
	if err := t.post(ctx, func() error {
		t.reg.Upsert(d)
		return nil
	}); err != nil {
		return id, err
	}

	t.logger.Info("trade submitted",
		"id", id.Short(),
		"from_currency", req.FromCurrency,
		"from_amount", req.FromAmount.String(),
		"to_currency", req.ToCurrency,
		"to_amount", req.ToAmount.String(),
	)
	return id, nil
}

func (t *Tracker) validate(o Order) (engine.SubmitRequest, error) {
	if o.From == "" || o.To == "" {
		return engine.SubmitRequest{}, ErrMissingAddress
	}
	if o.FromCurrency == "" || o.ToCurrency == "" {
		return engine.SubmitRequest{}, ErrMissingCurrency
	}
	if o.FromCurrency == o.ToCurrency {
		return engine.SubmitRequest{}, ErrSameCurrency
	}

	fromAmount, err := model.ExactAmount(o.FromAmount)
	if err != nil {
		return engine.SubmitRequest{}, fmt.Errorf("%w: from amount: %v", engine.ErrInvalidAmount, err)
	}
	toAmount, err := model.ExactAmount(o.ToAmount)
	if err != nil {
		return engine.SubmitRequest{}, fmt.Errorf("%w: to amount: %v", engine.ErrInvalidAmount, err)
	}
	if fromAmount == 0 || toAmount == 0 {
		return engine.SubmitRequest{}, fmt.Errorf("%w: amounts must be positive", engine.ErrInvalidAmount)
	}

	if minAmount, ok := t.engine.MinAmount(o.FromCurrency); ok && fromAmount < minAmount {
		return engine.SubmitRequest{}, fmt.Errorf("%w: %s %s is below the minimum %s",
			engine.ErrInvalidAmount, fromAmount, o.FromCurrency, minAmount)
	}

	return engine.SubmitRequest{
		From:         o.From,
		To:           o.To,
		FromCurrency: o.FromCurrency,
		ToCurrency:   o.ToCurrency,
		FromAmount:   fromAmount,
		ToAmount:     toAmount,
	}, nil
}

// AcceptPending accepts the offer published by hub. The row is claimed and
// swapped on the owner, the engine is called from this goroutine, and the
// confirmation is applied through the mailbox behind any notifications
// already queued. An engine failure leaves the row claimed.
func (t *Tracker) AcceptPending(ctx context.Context, id model.TradeID, hub, from, to string) error {
	if from == "" || to == "" {
		return ErrMissingAddress
	}

	var beginErr error
	if err := t.Do(ctx, func(reg *registry.Registry, _ *history.Store) {
		_, beginErr = reg.BeginAccept(id, hub, from, to)
	}); err != nil {
		return err
	}
	if beginErr != nil {
		return beginErr
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.CallTimeout)
	err := t.engine.AcceptTrade(callCtx, id, from, to)
	cancel()
	if err != nil {
		t.logger.Warn("accept failed", "id", id.Short(), "hub", hub, "error", err)
		return err
	}

	if err := t.post(ctx, func() error {
		return t.reg.CompleteAccept(id, hub, t.now())
	}); err != nil {
		return err
	}

	t.logger.Info("offer accepted", "id", id.Short(), "hub", hub)
	return nil
}

// Cancel asks the engine to cancel a trade on the user's behalf. The
// registry changes when the engine's notification arrives.
func (t *Tracker) Cancel(ctx context.Context, id model.TradeID) error {
	if err := t.requireKnown(ctx, id); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.CallTimeout)
	defer cancel()
	return t.engine.CancelTrade(callCtx, id, model.ReasonUserRequest)
}

// Rollback asks the engine to roll back a trade.
func (t *Tracker) Rollback(ctx context.Context, id model.TradeID) error {
	if err := t.requireKnown(ctx, id); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.CallTimeout)
	defer cancel()
	return t.engine.RollbackTrade(callCtx, id)
}

func (t *Tracker) requireKnown(ctx context.Context, id model.TradeID) error {
	var found bool
	if err := t.Do(ctx, func(reg *registry.Registry, _ *history.Store) {
		_, found = reg.Find(id)
	}); err != nil {
		return err
	}
	if !found {
		return registry.ErrNotFound
	}
	return nil
}

// post queues fn behind pending notifications and waits for its result.
func (t *Tracker) post(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !t.dispatcher.Post(func() { result <- fn() }) {
		return ErrStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		// Run drains the mailbox before closing done.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}
