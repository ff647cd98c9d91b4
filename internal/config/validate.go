package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *TrackerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := validateURL("engine.rest_url", c.Engine.RestURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("engine.ws_url", c.Engine.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.Engine.HasCredentials() {
		if c.Engine.KeyID == "" {
			return errors.New("engine.key_id is required when private_key_path is set")
		}
		if c.Engine.PrivateKeyPath == "" {
			return errors.New("engine.private_key_path is required when key_id is set")
		}
	}
	if c.Engine.TTL < 0 {
		return errors.New("engine.ttl must be >= 0")
	}
	if _, err := c.Engine.ParseMinAmounts(); err != nil {
		return err
	}
	if c.Engine.RefreshInterval < 0 {
		return errors.New("engine.refresh_interval must be >= 0")
	}
	if c.Engine.ReconnectMaxDelay < c.Engine.ReconnectBaseDelay {
		return fmt.Errorf("engine.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Engine.ReconnectMaxDelay, c.Engine.ReconnectBaseDelay)
	}

	if c.Tracker.SweepInterval <= 0 {
		return errors.New("tracker.sweep_interval must be > 0")
	}
	if c.Tracker.MailboxSize < 1 {
		return errors.New("tracker.mailbox_size must be >= 1")
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("logging.level: unknown level %q", s)
	}
	return level, nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("%s is missing a host", field)
			}
			return nil
		}
	}
	return fmt.Errorf("%s must use one of %v, got %q", field, schemes, u.Scheme)
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
