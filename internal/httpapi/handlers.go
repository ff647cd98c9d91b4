package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rickgao/swap-tracker/internal/archive"
	"github.com/rickgao/swap-tracker/internal/connection"
	"github.com/rickgao/swap-tracker/internal/history"
	"github.com/rickgao/swap-tracker/internal/model"
	"github.com/rickgao/swap-tracker/internal/poller"
	"github.com/rickgao/swap-tracker/internal/registry"
	"github.com/rickgao/swap-tracker/internal/tracker"
	"github.com/rickgao/swap-tracker/internal/version"
	"github.com/rickgao/swap-tracker/internal/view"
)

// SubmitRequest is the body of POST /v1/trades. Amounts are decimal coins.
type SubmitRequest struct {
	From         string          `json:"from" binding:"required"`
	To           string          `json:"to" binding:"required"`
	FromCurrency string          `json:"from_currency" binding:"required"`
	ToCurrency   string          `json:"to_currency" binding:"required"`
	FromAmount   decimal.Decimal `json:"from_amount"`
	ToAmount     decimal.Decimal `json:"to_amount"`
}

// AcceptRequest is the body of POST /v1/trades/:id/accept.
type AcceptRequest struct {
	Hub  string `json:"hub"`
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string                  `json:"status"`
	Version  version.Info            `json:"version"`
	Uptime   string                  `json:"uptime"`
	Revision uint64                  `json:"revision"`
	Tracker  TrackerHealth           `json:"tracker"`
	Stream   *connection.StreamStats `json:"stream,omitempty"`
	Archive  *archive.Metrics        `json:"archive,omitempty"`
	Refresh  *poller.Stats           `json:"engine_refresh,omitempty"`
}

// TrackerHealth summarises the owner loop.
type TrackerHealth struct {
	Rows            int       `json:"rows"`
	History         int       `json:"history"`
	Pending         int       `json:"pending"`
	LastSweepAt     time.Time `json:"last_sweep_at"`
	MailboxQueued   int       `json:"mailbox_queued"`
	MailboxCapacity int       `json:"mailbox_capacity"`
	DroppedMessages int64     `json:"dropped_messages"`
}

// SubmitResponse is returned by POST /v1/trades.
type SubmitResponse struct {
	ID model.TradeID `json:"id"`
}

// HistoryEntry is one migrated snapshot.
type HistoryEntry struct {
	view.Row
	FromAddress  string    `json:"from"`
	ToAddress    string    `json:"to"`
	LastUpdateAt time.Time `json:"last_update_at"`
}

func (s *Server) health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		Version: version.Get(),
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
	}
	if s.deps.Revision != nil {
		resp.Revision = s.deps.Revision.Value()
	}

	stats, err := s.deps.Tracker.Stats(c.Request.Context())
	if err != nil {
		resp.Status = "degraded"
	}
	resp.Tracker = TrackerHealth{
		Rows:            stats.Rows,
		History:         stats.History,
		Pending:         stats.Pending,
		LastSweepAt:     stats.LastSweepAt,
		MailboxQueued:   stats.Mailbox.Count,
		MailboxCapacity: stats.Mailbox.Capacity,
		DroppedMessages: stats.DroppedMessages,
	}

	if s.deps.Stream != nil {
		st := s.deps.Stream.StreamStats()
		resp.Stream = &st
		if !st.Connected {
			resp.Status = "degraded"
		}
	}
	if s.deps.Archive != nil {
		m := s.deps.Archive.Stats()
		resp.Archive = &m
	}
	if s.deps.Refresh != nil {
		ps := s.deps.Refresh.Stats()
		resp.Refresh = &ps
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	success(c, status, resp)
}

func (s *Server) listTrades(c *gin.Context) {
	var rows []view.Row
	err := s.deps.Tracker.Do(c.Request.Context(), func(reg *registry.Registry, _ *history.Store) {
		rows = view.New(reg).Rows()
	})
	if err != nil {
		handleError(c, err)
		return
	}
	if s.deps.Revision != nil {
		c.Header(HeaderRevision, strconv.FormatUint(s.deps.Revision.Value(), 10))
	}
	success(c, http.StatusOK, rows)
}

func (s *Server) getTrade(c *gin.Context) {
	id, ok := tradeIDParam(c)
	if !ok {
		return
	}
	d, err := s.deps.Tracker.Trade(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusOK, view.Render(d))
}

func (s *Server) listHistory(c *gin.Context) {
	snaps, err := s.deps.Tracker.History(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]HistoryEntry, 0, len(snaps))
	for _, d := range snaps {
		out = append(out, HistoryEntry{
			Row:          view.Render(d),
			FromAddress:  d.From,
			ToAddress:    d.To,
			LastUpdateAt: d.LastUpdateAt,
		})
	}
	success(c, http.StatusOK, out)
}

func (s *Server) submitTrade(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	id, err := s.deps.Tracker.Submit(c.Request.Context(), tracker.Order{
		From:         req.From,
		To:           req.To,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   req.FromAmount,
		ToAmount:     req.ToAmount,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusCreated, SubmitResponse{ID: id})
}

func (s *Server) acceptTrade(c *gin.Context) {
	id, ok := tradeIDParam(c)
	if !ok {
		return
	}
	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	if err := s.deps.Tracker.AcceptPending(c.Request.Context(), id, req.Hub, req.From, req.To); err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusAccepted, SubmitResponse{ID: id})
}

func (s *Server) cancelTrade(c *gin.Context) {
	id, ok := tradeIDParam(c)
	if !ok {
		return
	}
	if err := s.deps.Tracker.Cancel(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusAccepted, SubmitResponse{ID: id})
}

func (s *Server) rollbackTrade(c *gin.Context) {
	id, ok := tradeIDParam(c)
	if !ok {
		return
	}
	if err := s.deps.Tracker.Rollback(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	success(c, http.StatusAccepted, SubmitResponse{ID: id})
}

func tradeIDParam(c *gin.Context) (model.TradeID, bool) {
	id, err := model.ParseTradeID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return model.TradeID{}, false
	}
	return id, true
}
