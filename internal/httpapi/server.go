package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/swap-tracker/internal/archive"
	"github.com/rickgao/swap-tracker/internal/connection"
	"github.com/rickgao/swap-tracker/internal/poller"
	"github.com/rickgao/swap-tracker/internal/tracker"
	"github.com/rickgao/swap-tracker/internal/version"
	"github.com/rickgao/swap-tracker/internal/view"
)

// HeaderRevision carries the registry change counter on list responses.
const HeaderRevision = "X-Registry-Revision"

// StreamStatter reports notification stream health.
type StreamStatter interface {
	StreamStats() connection.StreamStats
}

// ArchiveStatter reports archive writer counters.
type ArchiveStatter interface {
	Stats() archive.Metrics
}

// PollerStatter reports engine settings refresh counters.
type PollerStatter interface {
	Stats() poller.Stats
}

// Deps are the components the server reads from. Only Tracker is required.
type Deps struct {
	Tracker  *tracker.Tracker
	Revision *view.Revision
	Stream   StreamStatter
	Archive  ArchiveStatter
	Refresh  PollerStatter
}

// Server serves the HTTP API.
type Server struct {
	deps    Deps
	logger  *slog.Logger
	router  *gin.Engine
	started time.Time
}

// New builds the router. Call before the tracker starts so Revision can be
// registered as an observer by the caller.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		deps:    deps,
		logger:  logger,
		router:  gin.New(),
		started: time.Now(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Handler returns the http.Handler for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)

	v1 := s.router.Group("/" + version.APIVersion)
	{
		trades := v1.Group("/trades")
		trades.GET("", s.listTrades)
		trades.POST("", s.submitTrade)
		trades.GET("/:id", s.getTrade)
		trades.POST("/:id/accept", s.acceptTrade)
		trades.POST("/:id/cancel", s.cancelTrade)
		trades.POST("/:id/rollback", s.rollbackTrade)

		v1.GET("/history", s.listHistory)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
