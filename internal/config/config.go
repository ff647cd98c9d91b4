package config

import (
	"fmt"
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

// TrackerConfig is the root configuration for a swap tracker instance.
type TrackerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Engine   EngineConfig   `yaml:"engine"`
	Tracker  TrackerSection `yaml:"tracker"`
	Archive  ArchiveConfig  `yaml:"archive"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this tracker.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// EngineConfig holds trading engine endpoints and credentials.
type EngineConfig struct {
	RestURL        string        `yaml:"rest_url"`
	WSURL          string        `yaml:"ws_url"`
	KeyID          string        `yaml:"key_id"`           // sent as SWAP-ACCESS-KEY
	PrivateKeyPath string        `yaml:"private_key_path"` // RSA private key PEM file
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RateLimit      float64       `yaml:"rate_limit"` // requests per second
	RateBurst      int           `yaml:"rate_burst"`

	// TTL and MinAmounts override what the engine reports when set.
	TTL        time.Duration     `yaml:"ttl"`
	MinAmounts map[string]string `yaml:"min_amounts"`

	RefreshInterval    time.Duration `yaml:"refresh_interval"` // how often settings are re-read
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingInterval       time.Duration `yaml:"ping_interval"`
}

// HasCredentials reports whether request signing is configured.
func (e EngineConfig) HasCredentials() bool {
	return e.KeyID != "" || e.PrivateKeyPath != ""
}

// ParseMinAmounts converts min_amounts to fixed point, keyed by ticker.
func (e EngineConfig) ParseMinAmounts() (map[string]model.Amount, error) {
	if len(e.MinAmounts) == 0 {
		return nil, nil
	}
	out := make(map[string]model.Amount, len(e.MinAmounts))
	for ticker, v := range e.MinAmounts {
		a, err := model.ParseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("engine.min_amounts.%s: %w", ticker, err)
		}
		out[ticker] = a
	}
	return out, nil
}

// TrackerSection tunes the owner loop.
type TrackerSection struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MailboxSize   int           `yaml:"mailbox_size"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
}

// ArchiveConfig controls mirroring of migrated trades to Postgres.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HTTPConfig holds the inspection API listener.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
