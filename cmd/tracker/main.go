// tracker follows swap trades published by a trading engine and serves the
// live registry over HTTP.
//
// Usage: go run ./cmd/tracker --config configs/tracker.yaml
//
// Optional environment (or .env file):
//
//	SWAP_ENGINE_KEY_ID       - engine API key ID, referenced from the config
//	SWAP_ENGINE_PRIVATE_KEY  - path to the RSA private key PEM file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rickgao/swap-tracker/internal/api"
	"github.com/rickgao/swap-tracker/internal/archive"
	"github.com/rickgao/swap-tracker/internal/auth"
	"github.com/rickgao/swap-tracker/internal/config"
	"github.com/rickgao/swap-tracker/internal/connection"
	"github.com/rickgao/swap-tracker/internal/database"
	"github.com/rickgao/swap-tracker/internal/engine"
	"github.com/rickgao/swap-tracker/internal/httpapi"
	"github.com/rickgao/swap-tracker/internal/poller"
	"github.com/rickgao/swap-tracker/internal/tracker"
	"github.com/rickgao/swap-tracker/internal/version"
	"github.com/rickgao/swap-tracker/internal/view"
)

func main() {
	configPath := flag.String("config", "configs/tracker.yaml", "path to config file")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config (skipped if missing)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting tracker",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("tracker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tracker stopped")
}

func run(cfg *config.TrackerConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Credentials are optional for local engines.
	var creds *auth.Credentials
	if cfg.Engine.HasCredentials() {
		var err error
		creds, err = auth.LoadCredentials(cfg.Engine.KeyID, cfg.Engine.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("load engine credentials: %w", err)
		}
	}

	apiClient := api.NewClient(
		cfg.Engine.RestURL,
		creds,
		api.WithLogger(logger.With("component", "api")),
		api.WithTimeout(cfg.Engine.Timeout),
		api.WithRetries(cfg.Engine.MaxRetries, time.Second),
		api.WithRateLimit(cfg.Engine.RateLimit, cfg.Engine.RateBurst),
	)

	remoteCfg, err := remoteConfig(cfg.Engine, creds)
	if err != nil {
		return err
	}
	remote := engine.NewRemote(apiClient, remoteCfg, logger.With("component", "engine"))

	logger.Info("loading engine status", "rest_url", cfg.Engine.RestURL)
	if err := remote.Refresh(ctx); err != nil {
		return err
	}

	tr := tracker.New(remote, tracker.Config{
		SweepInterval: cfg.Tracker.SweepInterval,
		MailboxSize:   cfg.Tracker.MailboxSize,
		CallTimeout:   cfg.Tracker.CallTimeout,
	}, logger.With("component", "tracker"))

	rev := &view.Revision{}
	tr.AddObserver(rev)

	deps := httpapi.Deps{Tracker: tr, Revision: rev, Stream: remote}

	if cfg.Engine.RefreshInterval > 0 {
		refresher := poller.New(poller.Config{
			Interval: cfg.Engine.RefreshInterval,
			Timeout:  cfg.Engine.Timeout,
		}, remote, logger.With("component", "poller"))
		if err := refresher.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			refresher.Stop(stopCtx)
		}()
		deps.Refresh = refresher
	}

	if cfg.Archive.Enabled {
		writer, closeDB, err := startArchive(ctx, cfg.Archive, logger.With("component", "archive"))
		if err != nil {
			return err
		}
		defer closeDB()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			writer.Stop(stopCtx)
		}()
		tr.SetMigrateHook(writer.Enqueue)
		deps.Archive = writer
	}

	server := httpapi.New(deps, logger.With("component", "http"))

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	start("tracker", tr.Run)
	select {
	case <-tr.Subscribed():
	case <-ctx.Done():
	}
	start("engine stream", remote.Run)
	start("http api", func(ctx context.Context) error {
		return server.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port), 10*time.Second)
	})

	logger.Info("tracker running",
		"http_url", fmt.Sprintf("http://localhost:%d/health", cfg.HTTP.Port),
		"ttl", remote.TTL(),
		"archive", cfg.Archive.Enabled,
	)

	<-ctx.Done()
	logger.Info("shutting down...")
	wg.Wait()

	close(errCh)
	return <-errCh
}

func remoteConfig(e config.EngineConfig, creds *auth.Credentials) (engine.RemoteConfig, error) {
	minAmounts, err := e.ParseMinAmounts()
	if err != nil {
		return engine.RemoteConfig{}, err
	}

	streamCfg := connection.DefaultStreamConfig()
	streamCfg.Dial.URL = e.WSURL
	streamCfg.Dial.PingInterval = e.PingInterval
	streamCfg.Dial.PingTimeout = 2 * e.PingInterval
	streamCfg.ReconnectBaseWait = e.ReconnectBaseDelay
	streamCfg.ReconnectMaxWait = e.ReconnectMaxDelay

	if creds != nil {
		u, err := url.Parse(e.WSURL)
		if err != nil {
			return engine.RemoteConfig{}, fmt.Errorf("parse engine.ws_url: %w", err)
		}
		path := u.Path
		streamCfg.Dial.Sign = func() (map[string]string, error) {
			return creds.SignWebSocket(path)
		}
	}

	return engine.RemoteConfig{
		TTL:        e.TTL,
		MinAmounts: minAmounts,
		Stream:     streamCfg,
	}, nil
}

func startArchive(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*archive.Writer, func(), error) {
	logger.Info("connecting to archive database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect archive database: %w", err)
	}
	if err := archive.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	writer := archive.NewWriter(archive.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		BufferSize:    cfg.BufferSize,
	}, pool, logger)
	// Stop, not ctx, ends the writer so queued snapshots are flushed.
	if err := writer.Start(context.WithoutCancel(ctx)); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return writer, pool.Close, nil
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
