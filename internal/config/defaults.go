package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID         = "swap-tracker"
	DefaultRestURL            = "http://127.0.0.1:8645/api/v1"
	DefaultWSURL              = "ws://127.0.0.1:8645/api/v1/stream"
	DefaultEngineTimeout      = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRateLimit          = 10
	DefaultRateBurst          = 20
	DefaultRefreshInterval    = 5 * time.Minute
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultPingInterval       = 30 * time.Second
	DefaultSweepInterval      = 3 * time.Second
	DefaultMailboxSize        = 256
	DefaultCallTimeout        = 30 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1024
	DefaultHTTPPort           = 8080
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

func (c *TrackerConfig) applyDefaults() {
	// Engine defaults
	if c.Engine.RestURL == "" {
		c.Engine.RestURL = DefaultRestURL
	}
	if c.Engine.WSURL == "" {
		c.Engine.WSURL = DefaultWSURL
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = DefaultEngineTimeout
	}
	if c.Engine.MaxRetries == 0 {
		c.Engine.MaxRetries = DefaultMaxRetries
	}
	if c.Engine.RateLimit == 0 {
		c.Engine.RateLimit = DefaultRateLimit
	}
	if c.Engine.RateBurst == 0 {
		c.Engine.RateBurst = DefaultRateBurst
	}
	if c.Engine.RefreshInterval == 0 {
		c.Engine.RefreshInterval = DefaultRefreshInterval
	}
	if c.Engine.ReconnectBaseDelay == 0 {
		c.Engine.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Engine.ReconnectMaxDelay == 0 {
		c.Engine.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Engine.PingInterval == 0 {
		c.Engine.PingInterval = DefaultPingInterval
	}

	// Tracker defaults
	if c.Tracker.SweepInterval == 0 {
		c.Tracker.SweepInterval = DefaultSweepInterval
	}
	if c.Tracker.MailboxSize == 0 {
		c.Tracker.MailboxSize = DefaultMailboxSize
	}
	if c.Tracker.CallTimeout == 0 {
		c.Tracker.CallTimeout = DefaultCallTimeout
	}

	// Archive defaults apply even when disabled.
	applyDBDefaults(&c.Archive.Database)
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
