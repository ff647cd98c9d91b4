// streamtail connects to the engine notification stream and prints each
// trade notification to the console. It does not touch the registry.
// Usage: go run ./cmd/streamtail --config configs/tracker.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/swap-tracker/internal/auth"
	"github.com/rickgao/swap-tracker/internal/config"
	"github.com/rickgao/swap-tracker/internal/connection"
	"github.com/rickgao/swap-tracker/internal/dispatch"
	"github.com/rickgao/swap-tracker/internal/view"
)

func main() {
	configPath := flag.String("config", "configs/tracker.yaml", "path to config file")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config (skipped if missing)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := config.LoadEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	streamCfg := connection.DefaultStreamConfig()
	streamCfg.Dial.URL = cfg.Engine.WSURL
	streamCfg.ReconnectBaseWait = cfg.Engine.ReconnectBaseDelay
	streamCfg.ReconnectMaxWait = cfg.Engine.ReconnectMaxDelay
	streamCfg.OnConnect = func() { logger.Info("stream connected", "url", cfg.Engine.WSURL) }

	if cfg.Engine.HasCredentials() {
		creds, err := auth.LoadCredentials(cfg.Engine.KeyID, cfg.Engine.PrivateKeyPath)
		if err != nil {
			logger.Error("failed to load credentials", "error", err)
			os.Exit(1)
		}
		u, err := url.Parse(cfg.Engine.WSURL)
		if err != nil {
			logger.Error("invalid ws url", "error", err)
			os.Exit(1)
		}
		streamCfg.Dial.Sign = func() (map[string]string, error) {
			return creds.SignWebSocket(u.Path)
		}
		logger.Info("using engine credentials", "key_id", creds.KeyID)
	}

	// The dispatcher moves notifications off the read goroutine, as the
	// tracker does.
	disp := dispatch.New(dispatch.DefaultMailboxSize, logger)
	stream := connection.NewStream(streamCfg, disp, logger.With("component", "stream"))

	go func() {
		if err := stream.Run(ctx); err != nil {
			logger.Error("stream stopped", "error", err)
			cancel()
		}
	}()

	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	logger.Info("streaming started - press Ctrl+C to stop")
	for {
		select {
		case <-ctx.Done():
			disp.Close()
			for _, msg := range disp.Drain() {
				printMessage(msg, *verbose)
			}
			logger.Info("shutdown complete")
			return

		case <-disp.Ready():
			for _, msg := range disp.Drain() {
				printMessage(msg, *verbose)
			}

		case <-statsTicker.C:
			st := stream.Stats()
			mb, dropped := disp.Stats()
			logger.Info("stats",
				"connected", st.Connected,
				"received", st.Received,
				"decode_errors", st.DecodeErrors,
				"reconnects", st.Reconnects,
				"seq_gaps", st.SeqGaps,
				"mailbox", mb.Count,
				"dropped", dropped,
			)
		}
	}
}

func printMessage(msg dispatch.Message, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(msg, "", "  ")
		fmt.Printf("[%s] %s\n", msg.Kind, data)
		return
	}

	switch msg.Kind {
	case dispatch.KindTradeReceived:
		row := view.Render(msg.Trade)
		fmt.Printf("[TRADE] id=%s hub=%s total=%q size=%q bid=%s state=%s\n",
			msg.Trade.ID.Short(), msg.Trade.Hub, row.Total, row.Size, row.Bid, row.State)
	case dispatch.KindTradeStateChanged:
		fmt.Printf("[STATE] id=%s state=%s\n", msg.ID.Short(), view.StateLabel(msg.State))
	case dispatch.KindTradeCancelled:
		fmt.Printf("[CANCEL] id=%s state=%s reason=%s\n", msg.ID.Short(), view.StateLabel(msg.State), msg.Reason)
	}
}
