package automaton

import (
	"log/slog"
	"time"

	"github.com/rickgao/swap-tracker/internal/history"
	"github.com/rickgao/swap-tracker/internal/model"
	"github.com/rickgao/swap-tracker/internal/registry"
)

// DefaultInterval is the reference sweep interval.
const DefaultInterval = 3 * time.Second

// Engine supplies the base TTL and the terminal-state classification.
type Engine interface {
	TTL() time.Duration
	IsHistoricState(state model.State) bool
}

// MigrateHook is called with every snapshot the sweep writes to the history
// store, whether new or replacing an older snapshot.
type MigrateHook func(model.TradeDescriptor)

// Result counts what a sweep did.
type Result struct {
	Offline   int
	Expired   int
	Recovered int
	Removed   int
	Migrated  int
}

// Changed reports whether the sweep touched anything.
func (r Result) Changed() bool {
	return r != Result{}
}

// Sweeper applies TTL transitions to a registry.
type Sweeper struct {
	reg    *registry.Registry
	hist   *history.Store
	engine Engine
	hook   MigrateHook
	logger *slog.Logger
}

// NewSweeper creates a Sweeper over reg and hist.
func NewSweeper(reg *registry.Registry, hist *history.Store, engine Engine, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		reg:    reg,
		hist:   hist,
		engine: engine,
		logger: logger,
	}
}

// SetMigrateHook sets the function notified of migrated snapshots.
func (s *Sweeper) SetMigrateHook(hook MigrateHook) {
	s.hook = hook
}

// Sweep runs one pass at time now.
func (s *Sweeper) Sweep(now time.Time) Result {
	var res Result

	ttl := s.engine.TTL()
	offlineAfter := ttl / 60
	expireAfter := ttl / 6

	for i := 0; i < s.reg.Len(); i++ {
		d := s.reg.Get(i)
		elapsed := now.Sub(d.LastUpdateAt)

		switch {
		case d.State == model.StateNew && elapsed > offlineAfter:
			s.reg.SetStateAt(i, model.StateOffline)
			res.Offline++
			s.logger.Debug("trade offline", "id", d.ID.Short(), "elapsed", elapsed)

		case d.State == model.StatePending && elapsed > expireAfter:
			s.reg.SetStateAt(i, model.StateExpired)
			res.Expired++
			s.logger.Debug("trade expired", "id", d.ID.Short(), "elapsed", elapsed)

		case (d.State == model.StateExpired || d.State == model.StateOffline) && elapsed < expireAfter:
			s.reg.SetStateAt(i, model.StatePending)
			res.Recovered++
			s.logger.Debug("trade recovered", "id", d.ID.Short(), "from", d.State)

		case d.State == model.StateExpired && elapsed > ttl:
			s.reg.RemoveAt(i)
			s.hist.DropPending(d.ID)
			res.Removed++
			s.logger.Debug("expired trade dropped", "id", d.ID.Short(), "elapsed", elapsed)
			i--
			continue
		}

		d = s.reg.Get(i)
		if !s.engine.IsHistoricState(d.State) {
			continue
		}
		if prev, ok := s.hist.Get(d.ID); ok && sameSnapshot(prev, d) {
			s.hist.DropPending(d.ID)
			continue
		}

		s.hist.Migrate(d)
		res.Migrated++
		if s.hook != nil {
			s.hook(d)
		}
	}

	if res.Changed() {
		s.logger.Info("ttl sweep",
			"offline", res.Offline,
			"expired", res.Expired,
			"recovered", res.Recovered,
			"removed", res.Removed,
			"migrated", res.Migrated,
			"active", s.reg.Len(),
		)
	}

	return res
}

// sameSnapshot compares two snapshots of one trade. Hub is ignored so a
// terminal trade republished by another hub is not migrated again.
func sameSnapshot(a, b model.TradeDescriptor) bool {
	return a.ID == b.ID &&
		a.From == b.From && a.To == b.To &&
		a.FromCurrency == b.FromCurrency && a.ToCurrency == b.ToCurrency &&
		a.FromAmount == b.FromAmount && a.ToAmount == b.ToAmount &&
		a.State == b.State && a.Reason == b.Reason &&
		a.CreatedAt.Equal(b.CreatedAt) && a.LastUpdateAt.Equal(b.LastUpdateAt)
}
