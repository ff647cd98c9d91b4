package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/swap-tracker/internal/api"
	"github.com/rickgao/swap-tracker/internal/model"
)

// Stream delivers engine notifications to a Handler, reconnecting as needed.
type Stream struct {
	cfg     StreamConfig
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	lastSeq int64

	connected    atomic.Bool
	received     atomic.Int64
	decodeErrors atomic.Int64
	reconnects   atomic.Int64
	seqGaps      atomic.Int64
}

// NewStream creates a stream. Call Run to start it.
func NewStream(cfg StreamConfig, handler Handler, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultStreamConfig()
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = defaults.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait < cfg.ReconnectBaseWait {
		cfg.ReconnectMaxWait = cfg.ReconnectBaseWait
	}

	return &Stream{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// Run connects and reads until ctx is cancelled. It always returns nil
// after cancellation; connection failures are retried.
func (s *Stream) Run(ctx context.Context) error {
	wait := s.cfg.ReconnectBaseWait

	for {
		conn, err := Dial(ctx, s.cfg.Dial, s.logger)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("stream connect failed", "url", s.cfg.Dial.URL, "error", err, "retry_in", wait)

			if !sleepCtx(ctx, wait) {
				return nil
			}
			wait = nextWait(wait, s.cfg.ReconnectMaxWait)
			continue
		}

		wait = s.cfg.ReconnectBaseWait
		s.connected.Store(true)
		s.resetSequence()
		s.logger.Info("stream connected", "url", s.cfg.Dial.URL)

		if s.cfg.OnConnect != nil {
			s.cfg.OnConnect()
		}

		err = s.readLoop(ctx, conn)
		conn.Close()
		s.connected.Store(false)

		if ctx.Err() != nil {
			return nil
		}

		s.reconnects.Add(1)
		s.logger.Warn("stream disconnected", "error", err, "retry_in", wait)
		if !sleepCtx(ctx, wait) {
			return nil
		}
	}
}

// IsConnected reports whether the stream currently has a live connection.
func (s *Stream) IsConnected() bool {
	return s.connected.Load()
}

// Stats returns stream statistics.
func (s *Stream) Stats() StreamStats {
	return StreamStats{
		Connected:    s.connected.Load(),
		Received:     s.received.Load(),
		DecodeErrors: s.decodeErrors.Load(),
		Reconnects:   s.reconnects.Load(),
		SeqGaps:      s.seqGaps.Load(),
	}
}

func (s *Stream) readLoop(ctx context.Context, conn *Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for f := range conn.Frames() {
		s.received.Add(1)
		if err := s.handle(f); err != nil {
			s.decodeErrors.Add(1)
			s.logger.Warn("dropping stream message", "error", err)
		}
	}
	return conn.Err()
}

// handle decodes one message and forwards it to the handler.
func (s *Stream) handle(f Frame) error {
	var env DataMessage
	if err := json.Unmarshal(f.Data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if env.Seq > 0 {
		if gap, size := s.checkSequence(env.Seq); gap {
			s.seqGaps.Add(1)
			s.logger.Warn("stream sequence gap", "seq", env.Seq, "missed", size)
			if s.cfg.OnConnect != nil {
				s.cfg.OnConnect()
			}
		}
	}

	switch env.Type {
	case TypeTradeReceived:
		var wire api.Trade
		if err := json.Unmarshal(env.Msg, &wire); err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		tx, err := api.ToDescriptor(wire)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		s.handler.OnTradeReceived(tx)

	case TypeTradeStateChanged:
		var m StateChangedMsg
		if err := json.Unmarshal(env.Msg, &m); err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		id, err := model.ParseTradeID(m.ID)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		state, err := model.ParseState(m.State)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		s.handler.OnTradeStateChanged(id, state)

	case TypeTradeCancelled:
		var m CancelledMsg
		if err := json.Unmarshal(env.Msg, &m); err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		id, err := model.ParseTradeID(m.ID)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		state, err := model.ParseState(m.State)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		s.handler.OnTradeCancelled(id, state, model.ParseReason(m.Reason))

	default:
		s.logger.Debug("ignoring stream message", "type", env.Type)
	}

	return nil
}

// checkSequence records seq and reports whether messages were skipped.
func (s *Stream) checkSequence(seq int64) (gap bool, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expected := s.lastSeq + 1
	if s.lastSeq > 0 && seq > expected {
		gap, size = true, seq-expected
	}
	if seq > s.lastSeq {
		s.lastSeq = seq
	}
	return gap, size
}

func (s *Stream) resetSequence() {
	s.mu.Lock()
	s.lastSeq = 0
	s.mu.Unlock()
}

func nextWait(wait, maxWait time.Duration) time.Duration {
	wait *= 2
	if wait > maxWait {
		wait = maxWait
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
