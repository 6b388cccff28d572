package usecase

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"
	"TradeLens/internal/services/csvimport"
	pkgcache "TradeLens/pkg/cache"
	xhttp "TradeLens/pkg/http"
	applogger "TradeLens/pkg/logger"
	"TradeLens/pkg/util"
	"TradeLens/pkg/ws"
)

// JobEnqueuer schedules background work after journal writes. Satisfied by
// the redis queue producer; nil disables background jobs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// TradesUseCase owns the write side of the journal: manual entry, CSV
// import, deletes, strategy assignment. Every successful write bumps the
// store version, flushes what must be flushed and tells subscribers.
type TradesUseCase struct {
	store    domrepo.ExecutionStore
	importer *csvimport.Importer
	cache    pkgcache.Service
	events   domrepo.EventPublisher
	hub      *ws.Hub
	jobs     JobEnqueuer
	recorder domrepo.Metrics
	logger   *applogger.Logger
}

func NewTradesUseCase(
	store domrepo.ExecutionStore,
	importer *csvimport.Importer,
	cache pkgcache.Service,
	events domrepo.EventPublisher,
	hub *ws.Hub,
	jobs JobEnqueuer,
	recorder domrepo.Metrics,
	logger *applogger.Logger,
) *TradesUseCase {
	return &TradesUseCase{
		store:    store,
		importer: importer,
		cache:    cache,
		events:   events,
		hub:      hub,
		jobs:     jobs,
		recorder: recorder,
		logger:   logger,
	}
}

// List returns raw executions newest first, optionally date-bounded.
func (uc *TradesUseCase) List(ctx context.Context, req *models.ListTradesRequest) ([]models.Execution, error) {
	from, to, err := util.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, xhttp.NewAppError("ERR_DATE_RANGE", "start_date", err.Error(), http.StatusBadRequest)
	}
	execs, err := uc.store.List(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(execs)-1; i < j; i, j = i+1, j-1 {
		execs[i], execs[j] = execs[j], execs[i]
	}
	return execs, nil
}

// Get returns one execution or a 404 error.
func (uc *TradesUseCase) Get(ctx context.Context, id int64) (*models.Execution, error) {
	e, err := uc.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xhttp.NotFoundErrorf("trade %d not found", id)
		}
		return nil, err
	}
	return e, nil
}

// Add records one manually entered execution.
func (uc *TradesUseCase) Add(ctx context.Context, req *models.TradeWriteRequest) (*models.Execution, error) {
	start := time.Now()
	e, err := buildExecution(req)
	if err != nil {
		uc.recorder.RecordOperationError("add_trade")
		return nil, err
	}
	id, err := uc.store.Add(ctx, e)
	if err != nil {
		uc.recorder.RecordOperationError("add_trade")
		return nil, err
	}
	e.ID = id
	uc.journalChanged(ctx, models.EventTradeMutated, 1, false)
	uc.recorder.RecordOperation("add_trade", time.Since(start).Seconds())
	return e, nil
}

// Update rewrites an existing execution in full.
func (uc *TradesUseCase) Update(ctx context.Context, id int64, req *models.TradeWriteRequest) (*models.Execution, error) {
	e, err := buildExecution(req)
	if err != nil {
		return nil, err
	}
	e.ID = id
	if err := uc.store.Update(ctx, e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xhttp.NotFoundErrorf("trade %d not found", id)
		}
		return nil, err
	}
	uc.journalChanged(ctx, models.EventTradeMutated, 1, false)
	return e, nil
}

// Delete removes one execution.
func (uc *TradesUseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return xhttp.NotFoundErrorf("trade %d not found", id)
		}
		return err
	}
	uc.journalChanged(ctx, models.EventTradeMutated, 1, false)
	return nil
}

// AssignStrategy tags (or, with nil, untags) one execution.
func (uc *TradesUseCase) AssignStrategy(ctx context.Context, id int64, strategyID *int64) error {
	if err := uc.store.AssignStrategy(ctx, id, strategyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return xhttp.NotFoundErrorf("trade %d not found", id)
		}
		return err
	}
	uc.journalChanged(ctx, models.EventTradeMutated, 1, false)
	return nil
}

// ImportCsv parses, dedupes and stores a CSV payload. Row-level failures are
// collected; only unreadable payloads fail the call.
func (uc *TradesUseCase) ImportCsv(ctx context.Context, csvData string) (*models.ImportResult, error) {
	start := time.Now()
	execs, rowErrs, err := uc.importer.Parse(csvData)
	if err != nil {
		uc.recorder.RecordOperationError("import_csv")
		return nil, xhttp.NewAppError("ERR_VALIDATION", "csv_data", err.Error(), http.StatusBadRequest)
	}

	rows := make([]*models.Execution, len(execs))
	for i := range execs {
		rows[i] = &execs[i]
	}
	batch, err := uc.store.AddBatch(ctx, rows)
	if err != nil {
		uc.recorder.RecordOperationError("import_csv")
		return nil, err
	}

	uc.recorder.RecordImport(batch.Inserted, batch.Duplicates)
	if batch.Inserted > 0 {
		uc.journalChanged(ctx, models.EventTradesImported, batch.Inserted, true)
	}
	uc.recorder.RecordOperation("import_csv", time.Since(start).Seconds())

	uc.logger.Info("csv import finished",
		applogger.Int("imported", batch.Inserted),
		applogger.Int("duplicates", batch.Duplicates),
		applogger.Int("row_errors", len(rowErrs)))

	return &models.ImportResult{
		Imported:          batch.Inserted,
		SkippedDuplicates: batch.Duplicates,
		Errors:            rowErrs,
	}, nil
}

// Ingest stores executions arriving from the feed topic. Same dedupe and
// fan-out as the HTTP import path.
func (uc *TradesUseCase) Ingest(ctx context.Context, execs []*models.Execution) (*domrepo.BatchResult, error) {
	batch, err := uc.store.AddBatch(ctx, execs)
	if err != nil {
		uc.recorder.RecordOperationError("ingest")
		return nil, err
	}
	uc.recorder.RecordImport(batch.Inserted, batch.Duplicates)
	if batch.Inserted > 0 {
		uc.journalChanged(ctx, models.EventTradesImported, batch.Inserted, true)
	}
	return batch, nil
}

// Clear wipes the journal and reports how many executions were removed.
func (uc *TradesUseCase) Clear(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := uc.store.Clear(ctx)
	if err != nil {
		uc.recorder.RecordOperationError("clear")
		return 0, err
	}
	uc.journalChanged(ctx, models.EventTradesCleared, int(deleted), true)
	uc.recorder.RecordOperation("clear", time.Since(start).Seconds())
	uc.logger.Info("journal cleared", applogger.Int("deleted", int(deleted)))
	return deleted, nil
}

// Symbols lists the distinct tickers in the journal.
func (uc *TradesUseCase) Symbols(ctx context.Context) ([]string, error) {
	return uc.store.Symbols(ctx)
}

// journalChanged runs the post-write fan-out: cache flush (bulk writes
// only; point writes rely on version-keyed caching), WS broadcast, events
// topic, background jobs, stored-count gauge. All best effort; the write
// already committed.
func (uc *TradesUseCase) journalChanged(ctx context.Context, evType string, count int, flush bool) {
	version := uc.store.Version()

	if flush && uc.cache != nil {
		if err := uc.cache.DeleteByPattern(ctx, pkgcache.BuildPattern(analyticsKeyPrefix+":")); err != nil {
			uc.logger.Warn("analytics cache flush failed", applogger.Error(err))
		}
	}

	ev := models.JournalEvent{Type: evType, Count: count, Version: version, At: time.Now().UTC()}
	if uc.hub != nil {
		uc.hub.Broadcast(ev)
	}
	if uc.events != nil {
		if err := uc.events.Publish(ctx, ev); err != nil {
			uc.logger.Warn("journal event publish failed",
				applogger.String("type", evType), applogger.Error(err))
		}
	}

	if uc.jobs != nil && flush {
		if err := uc.jobs.Enqueue(ctx, JobAnalyticsWarmup, WarmupPayload{Version: version}); err != nil {
			uc.logger.Warn("warmup enqueue failed", applogger.Error(err))
		}
		if evType == models.EventTradesImported {
			if err := uc.jobs.Enqueue(ctx, JobArchiveSync, ArchiveSyncPayload{Version: version}); err != nil {
				uc.logger.Warn("archive enqueue failed", applogger.Error(err))
			}
		}
	}

	if n, err := uc.store.Count(ctx); err == nil {
		uc.recorder.SetExecutionsStored(n)
	}
}

func buildExecution(req *models.TradeWriteRequest) (*models.Execution, error) {
	symbol := util.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, xhttp.NewAppError("ERR_VALIDATION", "symbol", "symbol is required", http.StatusBadRequest)
	}
	side := strings.ToUpper(strings.TrimSpace(req.Side))
	if side != models.SideBuy && side != models.SideSell {
		return nil, xhttp.NewAppError("ERR_VALIDATION", "side", "side must be BUY or SELL", http.StatusBadRequest).
			WithParam("side", req.Side)
	}
	ts, ok := util.ParseTime(req.Timestamp)
	if !ok {
		return nil, xhttp.NewAppError("ERR_VALIDATION", "timestamp", "invalid timestamp", http.StatusBadRequest).
			WithParam("timestamp", req.Timestamp)
	}

	orderType := strings.ToUpper(strings.TrimSpace(req.OrderType))
	if orderType == "" {
		orderType = "MARKET"
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		status = models.StatusFilled
	}

	return &models.Execution{
		Symbol:     symbol,
		Side:       side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Timestamp:  ts,
		OrderType:  orderType,
		Status:     status,
		Fees:       req.Fees,
		Notes:      req.Notes,
		StrategyID: req.StrategyID,
	}, nil
}
