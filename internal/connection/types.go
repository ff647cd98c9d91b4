package connection

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

// Errors
var (
	ErrClosed          = errors.New("stream connection closed")
	ErrStaleConnection = errors.New("stream connection stale (no traffic)")
)

// Message types sent by the engine.
const (
	TypeTradeReceived     = "trade_received"
	TypeTradeStateChanged = "trade_state_changed"
	TypeTradeCancelled    = "trade_cancelled"
)

// Handler receives decoded notifications. Calls are made from the stream's
// read goroutine and must not block.
type Handler interface {
	OnTradeReceived(tx model.TradeDescriptor)
	OnTradeStateChanged(id model.TradeID, state model.State)
	OnTradeCancelled(id model.TradeID, state model.State, reason model.Reason)
}

// Frame is one raw stream message.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
}

// DataMessage is the envelope of every stream message.
type DataMessage struct {
	Type string          `json:"type"`
	Seq  int64           `json:"seq,omitempty"` // Per-connection sequence, starting at 1
	Msg  json.RawMessage `json:"msg"`
}

// StateChangedMsg is the content of a trade_state_changed message.
type StateChangedMsg struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// CancelledMsg is the content of a trade_cancelled message.
type CancelledMsg struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Reason string `json:"reason"`
}

// DialConfig configures a stream connection.
type DialConfig struct {
	URL              string                            // e.g. ws://127.0.0.1:8645/api/v1/stream
	Sign             func() (map[string]string, error) // handshake auth headers, nil for none
	HandshakeTimeout time.Duration
	PingInterval     time.Duration // keepalive ping period
	PingTimeout      time.Duration // silence allowed before the connection is stale
	WriteTimeout     time.Duration // deadline for control frames
	BufferSize       int           // frames queued ahead of the reader
}

// DefaultDialConfig returns the dial defaults.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

func (c DialConfig) withDefaults() DialConfig {
	d := DefaultDialConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PingTimeout <= c.PingInterval {
		c.PingTimeout = 2 * c.PingInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

// StreamConfig configures a Stream.
type StreamConfig struct {
	Dial              DialConfig
	ReconnectBaseWait time.Duration // Base wait time for reconnection
	ReconnectMaxWait  time.Duration // Max wait time for reconnection

	// OnConnect runs after each successful dial and after a sequence gap.
	OnConnect func()
}

// DefaultStreamConfig returns sensible defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Dial:              DefaultDialConfig(),
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  60 * time.Second,
	}
}

// StreamStats contains stream statistics.
type StreamStats struct {
	Connected    bool  `json:"connected"`
	Received     int64 `json:"received"`
	DecodeErrors int64 `json:"decode_errors"`
	Reconnects   int64 `json:"reconnects"`
	SeqGaps      int64 `json:"seq_gaps"`
}
