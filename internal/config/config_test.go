package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-tracker
engine:
  rest_url: https://engine.example.com/v1
  ws_url: wss://engine.example.com
  ttl: 90m
  min_amounts:
    BTC: "0.001"
tracker:
  sweep_interval: 5s
archive:
  enabled: true
  database:
    host: localhost
    port: 5432
    name: swaps
    user: tracker
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-tracker" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-tracker")
	}
	if cfg.Engine.RestURL != "https://engine.example.com/v1" {
		t.Errorf("Engine.RestURL = %q, want %q", cfg.Engine.RestURL, "https://engine.example.com/v1")
	}
	if cfg.Engine.TTL != 90*time.Minute {
		t.Errorf("Engine.TTL = %v, want %v", cfg.Engine.TTL, 90*time.Minute)
	}
	if cfg.Tracker.SweepInterval != 5*time.Second {
		t.Errorf("Tracker.SweepInterval = %v, want %v", cfg.Tracker.SweepInterval, 5*time.Second)
	}
	if !cfg.Archive.Enabled {
		t.Error("Archive.Enabled = false, want true")
	}
	if cfg.Archive.Database.Name != "swaps" {
		t.Errorf("Archive.Database.Name = %q, want %q", cfg.Archive.Database.Name, "swaps")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")
	t.Setenv("TEST_KEY_ID", "key-1")

	yaml := `
instance:
  id: test-tracker
engine:
  key_id: ${TEST_KEY_ID}
archive:
  database:
    host: localhost
    name: swaps
    user: tracker
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Archive.Database.Password != "secret123" {
		t.Errorf("Archive.Database.Password = %q, want %q", cfg.Archive.Database.Password, "secret123")
	}
	if cfg.Engine.KeyID != "key-1" {
		t.Errorf("Engine.KeyID = %q, want %q", cfg.Engine.KeyID, "key-1")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("SWAP_TRACKER_TEST_VAR=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SWAP_TRACKER_TEST_VAR", "")
	os.Unsetenv("SWAP_TRACKER_TEST_VAR")

	if err := LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("SWAP_TRACKER_TEST_VAR"); got != "from-dotenv" {
		t.Errorf("SWAP_TRACKER_TEST_VAR = %q, want %q", got, "from-dotenv")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-tracker
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Engine.RestURL != DefaultRestURL {
		t.Errorf("Engine.RestURL = %q, want default %q", cfg.Engine.RestURL, DefaultRestURL)
	}
	if cfg.Engine.Timeout != DefaultEngineTimeout {
		t.Errorf("Engine.Timeout = %v, want default %v", cfg.Engine.Timeout, DefaultEngineTimeout)
	}
	if cfg.Engine.TTL != 0 {
		t.Errorf("Engine.TTL = %v, want 0 (engine reported)", cfg.Engine.TTL)
	}
	if cfg.Tracker.SweepInterval != DefaultSweepInterval {
		t.Errorf("Tracker.SweepInterval = %v, want default %v", cfg.Tracker.SweepInterval, DefaultSweepInterval)
	}
	if cfg.Tracker.MailboxSize != DefaultMailboxSize {
		t.Errorf("Tracker.MailboxSize = %d, want default %d", cfg.Tracker.MailboxSize, DefaultMailboxSize)
	}
	if cfg.Archive.Database.Port != DefaultDBPort {
		t.Errorf("Archive.Database.Port = %d, want default %d", cfg.Archive.Database.Port, DefaultDBPort)
	}
	if cfg.HTTP.Port != DefaultHTTPPort {
		t.Errorf("HTTP.Port = %d, want default %d", cfg.HTTP.Port, DefaultHTTPPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Archive.Enabled {
		t.Error("Archive.Enabled = true, want false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() TrackerConfig {
		return *Default()
	}

	tests := []struct {
		name    string
		mutate  func(c *TrackerConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *TrackerConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad rest scheme",
			mutate:  func(c *TrackerConfig) { c.Engine.RestURL = "ftp://engine" },
			wantErr: `engine.rest_url must use one of [http https], got "ftp"`,
		},
		{
			name:    "ws url without host",
			mutate:  func(c *TrackerConfig) { c.Engine.WSURL = "ws://" },
			wantErr: "engine.ws_url is missing a host",
		},
		{
			name:    "key id without private key",
			mutate:  func(c *TrackerConfig) { c.Engine.KeyID = "key-1" },
			wantErr: "engine.private_key_path is required when key_id is set",
		},
		{
			name:    "bad min amount",
			mutate:  func(c *TrackerConfig) { c.Engine.MinAmounts = map[string]string{"BTC": "abc"} },
			wantErr: `engine.min_amounts.BTC: malformed amount: "abc"`,
		},
		{
			name:    "zero mailbox",
			mutate:  func(c *TrackerConfig) { c.Tracker.MailboxSize = 0 },
			wantErr: "tracker.mailbox_size must be >= 1",
		},
		{
			name:    "archive without host",
			mutate:  func(c *TrackerConfig) { c.Archive.Enabled = true },
			wantErr: "archive.database.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *TrackerConfig) {
				c.Archive.Enabled = true
				c.Archive.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "archive.database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "port out of range",
			mutate:  func(c *TrackerConfig) { c.HTTP.Port = 70000 },
			wantErr: "http.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *TrackerConfig) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name:    "valid config",
			mutate:  func(c *TrackerConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseMinAmounts(t *testing.T) {
	e := EngineConfig{MinAmounts: map[string]string{"BTC": "0.001", "LTC": "1"}}
	got, err := e.ParseMinAmounts()
	if err != nil {
		t.Fatalf("ParseMinAmounts failed: %v", err)
	}
	if got["BTC"] != model.Amount(1000) {
		t.Errorf("BTC = %d, want 1000", got["BTC"])
	}
	if got["LTC"] != model.Amount(model.CoinScale) {
		t.Errorf("LTC = %d, want %d", got["LTC"], model.CoinScale)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(\"loud\") expected error")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("SWAP_ENGINE_KEY_ID", "")
	t.Setenv("SWAP_ENGINE_PRIVATE_KEY", "")

	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "tracker.example.yaml"))
	if err != nil {
		t.Fatalf("LoadAndValidate(example) error = %v", err)
	}
	if cfg.Engine.HasCredentials() {
		t.Error("HasCredentials() = true, want false with empty env")
	}
	if cfg.Engine.RefreshInterval != 5*time.Minute {
		t.Errorf("Engine.RefreshInterval = %v, want %v", cfg.Engine.RefreshInterval, 5*time.Minute)
	}
	mins, err := cfg.Engine.ParseMinAmounts()
	if err != nil {
		t.Fatalf("ParseMinAmounts() error = %v", err)
	}
	if mins["BLOCK"] != model.CoinScale {
		t.Errorf("min BLOCK = %d, want %d", mins["BLOCK"], model.CoinScale)
	}
}
