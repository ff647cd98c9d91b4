package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher reloads engine settings. *engine.Remote implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc is a function adapter for Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Interval  time.Duration // Poll interval (default: 5m)
	Timeout   time.Duration // Per-refresh timeout (default: 10s)
	Immediate bool          // Refresh once on Start
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Stats counts refresh attempts.
type Stats struct {
	Polls    int64     `json:"polls"`
	Errors   int64     `json:"errors"`
	LastPoll time.Time `json:"last_poll"`
	LastErr  string    `json:"last_error,omitempty"`
}

// Poller periodically refreshes engine settings.
type Poller struct {
	cfg    Config
	target Refresher
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, target Refresher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &Poller{
		cfg:    cfg,
		target: target,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("engine status poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("engine status poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a copy of the counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if p.cfg.Immediate {
		p.poll()
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := p.target.Refresh(ctx)

	p.mu.Lock()
	p.stats.Polls++
	p.stats.LastPoll = start
	if err != nil {
		p.stats.Errors++
		p.stats.LastErr = err.Error()
	} else {
		p.stats.LastErr = ""
	}
	p.mu.Unlock()

	if err != nil {
		if p.ctx.Err() == nil {
			p.logger.Warn("engine refresh failed", "error", err)
		}
		return
	}
	p.logger.Debug("engine refreshed", "duration", time.Since(start))
}
