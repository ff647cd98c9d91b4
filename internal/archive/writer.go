package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/swap-tracker/internal/dispatch"
	"github.com/rickgao/swap-tracker/internal/model"
)

// Writer consumes migrated trade snapshots and upserts them into trade_history.
type Writer struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// Input from the tracker's migrate hook
	input *dispatch.Mailbox[model.TradeDescriptor]

	// Database
	db DB

	// Batching
	batch       []historyRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	consumed chan struct{}

	// Metrics
	metrics Metrics
}

// NewWriter creates a Writer. db may be nil in tests that never flush.
func NewWriter(cfg Config, db DB, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = defaults.BufferSize
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		input:  dispatch.NewMailbox[model.TradeDescriptor](cfg.BufferSize),
		batch:  make([]historyRow, 0, cfg.BatchSize),
		ctx:    context.Background(),
	}
}

// Enqueue queues a snapshot for archiving. It never blocks, so it can serve
// directly as the tracker's migrate hook.
func (w *Writer) Enqueue(d model.TradeDescriptor) {
	ok := w.input.Send(d)

	w.batchMu.Lock()
	if ok {
		w.metrics.Enqueued++
	} else {
		w.metrics.Dropped++
	}
	w.batchMu.Unlock()
}

// Start begins consuming snapshots and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.consumed = make(chan struct{})
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop closes the input, waits for queued snapshots to be batched and
// performs a final flush bounded by ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	w.input.Close()

	if w.cancel != nil {
		select {
		case <-w.consumed:
		case <-ctx.Done():
			w.logger.Warn("archive writer stop timed out", "queued", w.input.Len())
		}

		w.cancel()
		w.flushTicker.Stop()
		w.wg.Wait()
	}

	w.flush(ctx)
	w.logger.Info("archive writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the mailbox until it is closed and empty.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()
	defer close(w.consumed)

	for {
		d, ok := w.input.Receive()
		if !ok || w.ctx.Err() != nil {
			return
		}
		w.handleSnapshot(d)
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleSnapshot transforms and adds a snapshot to the batch.
func (w *Writer) handleSnapshot(d model.TradeDescriptor) {
	row := w.transform(d)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a descriptor to a historyRow.
func (w *Writer) transform(d model.TradeDescriptor) historyRow {
	return historyRow{
		ID:           d.ID.String(),
		Hub:          d.Hub,
		FromAddress:  d.From,
		ToAddress:    d.To,
		FromCurrency: d.FromCurrency,
		ToCurrency:   d.ToCurrency,
		FromAmount:   d.FromAmount.Decimal().StringFixed(6),
		ToAmount:     d.ToAmount.Decimal().StringFixed(6),
		State:        d.State.String(),
		Reason:       d.Reason.String(),
		CreatedAt:    d.CreatedAt.UTC(),
		LastUpdateAt: d.LastUpdateAt.UTC(),
		ArchivedAt:   w.now(),
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]historyRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if w.db == nil {
		w.logger.Warn("archive has no database, dropping batch", "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	start := time.Now()

	stale, err := w.batchUpsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch upsert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - stale)
	w.metrics.Stale += int64(stale)
	w.metrics.Flushes++
	w.metrics.LastFlush = w.now()
	w.batchMu.Unlock()

	w.logger.Debug("flushed trade history",
		"count", len(batch),
		"stale", stale,
		"duration", time.Since(start),
	)
}

// batchUpsert sends rows in one pgx.Batch. A row that affects nothing lost
// the last_update_at comparison against a stored snapshot.
func (w *Writer) batchUpsert(ctx context.Context, rows []historyRow) (stale int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertSQL,
			r.ID, r.Hub, r.FromAddress, r.ToAddress, r.FromCurrency, r.ToCurrency,
			r.FromAmount, r.ToAmount, r.State, r.Reason, r.CreatedAt, r.LastUpdateAt, r.ArchivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			stale++
		}
	}

	return stale, nil
}
