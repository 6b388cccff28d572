package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"TradeLens/internal/domain/models"
	"TradeLens/internal/repository"
	"TradeLens/internal/services/csvimport"
	pkgcache "TradeLens/pkg/cache"
	xhttp "TradeLens/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureEvents struct {
	mu     sync.Mutex
	events []models.JournalEvent
}

func (c *captureEvents) Publish(_ context.Context, ev models.JournalEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureEvents) Close() error { return nil }

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type
	}
	return out
}

type captureQueue struct {
	mu    sync.Mutex
	types []string
}

func (c *captureQueue) Enqueue(_ context.Context, msgType string, _ interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = append(c.types, msgType)
	return nil
}

func (c *captureQueue) enqueued() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.types...)
}

type tradesFixture struct {
	uc     *TradesUseCase
	store  *repository.Store
	events *captureEvents
	jobs   *captureQueue
}

func newTradesFixture(t *testing.T, cache pkgcache.Service) *tradesFixture {
	t.Helper()
	store, err := repository.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	events := &captureEvents{}
	jobs := &captureQueue{}
	uc := NewTradesUseCase(store, csvimport.NewImporter(0), cache, events, nil, jobs, nopMetrics{}, testLogger(t))
	return &tradesFixture{uc: uc, store: store, events: events, jobs: jobs}
}

func writeReq(symbol, side string, qty, price float64, ts string) *models.TradeWriteRequest {
	return &models.TradeWriteRequest{
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: ts,
	}
}

func TestAddNormalizesAndDefaults(t *testing.T) {
	f := newTradesFixture(t, nil)
	ctx := context.Background()

	exec, err := f.uc.Add(ctx, writeReq("  aapl ", "buy", 10, 187.5, "2024-03-04T09:30:00Z"))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", exec.Symbol)
	assert.Equal(t, models.SideBuy, exec.Side)
	assert.Equal(t, "MARKET", exec.OrderType)
	assert.Equal(t, models.StatusFilled, exec.Status)
	assert.NotZero(t, exec.ID)

	assert.Equal(t, []string{models.EventTradeMutated}, f.events.types())
	assert.Empty(t, f.jobs.enqueued(), "point writes must not enqueue jobs")
}

func TestAddRejectsUnknownSide(t *testing.T) {
	f := newTradesFixture(t, nil)

	_, err := f.uc.Add(context.Background(), writeReq("AAPL", "HOLD", 10, 187.5, "2024-03-04T09:30:00Z"))
	require.Error(t, err)
	appErr, ok := err.(*xhttp.AppError)
	require.True(t, ok)
	assert.Equal(t, "ERR_VALIDATION", appErr.Code)
	assert.Equal(t, "side", appErr.Field)
}

func TestAddRejectsBadTimestamp(t *testing.T) {
	f := newTradesFixture(t, nil)

	_, err := f.uc.Add(context.Background(), writeReq("AAPL", "BUY", 10, 187.5, "yesterday"))
	require.Error(t, err)
	appErr, ok := err.(*xhttp.AppError)
	require.True(t, ok)
	assert.Equal(t, "timestamp", appErr.Field)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	f := newTradesFixture(t, nil)

	_, err := f.uc.Get(context.Background(), 404)
	require.Error(t, err)
	appErr, ok := err.(*xhttp.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	f := newTradesFixture(t, nil)

	_, err := f.uc.Update(context.Background(), 404, writeReq("AAPL", "BUY", 10, 187.5, "2024-03-04T09:30:00Z"))
	require.Error(t, err)
	appErr, ok := err.(*xhttp.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestListNewestFirst(t *testing.T) {
	f := newTradesFixture(t, nil)
	ctx := context.Background()

	for i, ts := range []string{"2024-03-04T09:30:00Z", "2024-03-04T10:30:00Z", "2024-03-04T11:30:00Z"} {
		_, err := f.uc.Add(ctx, writeReq("AAPL", "BUY", float64(i+1), 100, ts))
		require.NoError(t, err)
	}

	list, err := f.uc.List(ctx, &models.ListTradesRequest{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].Timestamp.After(list[1].Timestamp))
	assert.True(t, list[1].Timestamp.After(list[2].Timestamp))
}

func TestListRejectsInvertedRange(t *testing.T) {
	f := newTradesFixture(t, nil)

	_, err := f.uc.List(context.Background(), &models.ListTradesRequest{
		StartDate: "2024-03-10", EndDate: "2024-03-01",
	})
	require.Error(t, err)
	appErr, ok := err.(*xhttp.AppError)
	require.True(t, ok)
	assert.Equal(t, "ERR_DATE_RANGE", appErr.Code)
}

const importPayload = `symbol,side,quantity,price,timestamp,fees
AAPL,BUY,10,187.50,2024-03-04T09:30:00Z,1.00
AAPL,SELL,10,190.00,2024-03-04T10:15:00Z,1.00
TSLA,BUY,5,240.00,2024-03-04T09:45:00Z,0.50
`

func TestImportCsvStoresAndFansOut(t *testing.T) {
	f := newTradesFixture(t, nil)
	ctx := context.Background()

	res, err := f.uc.ImportCsv(ctx, importPayload)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Zero(t, res.SkippedDuplicates)
	assert.Empty(t, res.Errors)

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []string{models.EventTradesImported}, f.events.types())
	assert.ElementsMatch(t, []string{JobAnalyticsWarmup, JobArchiveSync}, f.jobs.enqueued())
}

func TestImportCsvSkipsDuplicatesOnReimport(t *testing.T) {
	f := newTradesFixture(t, nil)
	ctx := context.Background()

	_, err := f.uc.ImportCsv(ctx, importPayload)
	require.NoError(t, err)

	res, err := f.uc.ImportCsv(ctx, importPayload)
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
	assert.Equal(t, 3, res.SkippedDuplicates)

	// No new rows means no second import event and no fresh jobs.
	assert.Equal(t, []string{models.EventTradesImported}, f.events.types())
	assert.Len(t, f.jobs.enqueued(), 2)
}

func TestImportCsvCollectsRowErrors(t *testing.T) {
	f := newTradesFixture(t, nil)

	payload := "symbol,side,quantity,price,timestamp\n" +
		"AAPL,BUY,10,187.50,2024-03-04T09:30:00Z\n" +
		",BUY,10,187.50,2024-03-04T09:31:00Z\n" +
		"TSLA,HOLD,5,240.00,2024-03-04T09:32:00Z\n"

	res, err := f.uc.ImportCsv(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Equal(t, 4, res.Errors[1].Line)
}

func TestImportCsvRejectsEmptyPayload(t *testing.T) {
	f := newTradesFixture(t, nil)

	_, err := f.uc.ImportCsv(context.Background(), "")
	require.Error(t, err)
	appErr, ok := err.(*xhttp.AppError)
	require.True(t, ok)
	assert.Equal(t, "ERR_VALIDATION", appErr.Code)
	assert.Equal(t, "csv_data", appErr.Field)
}

func TestImportCsvFlushesAnalyticsCache(t *testing.T) {
	mem := newTestMemoryCache(t)
	f := newTradesFixture(t, mem)
	ctx := context.Background()

	key := analyticsKeyPrefix + ":metrics:1:fifo::"
	require.NoError(t, mem.Set(ctx, key, "cached", time.Minute))

	_, err := f.uc.ImportCsv(ctx, importPayload)
	require.NoError(t, err)

	var out string
	err = mem.Get(ctx, key, &out)
	assert.ErrorIs(t, err, pkgcache.ErrCacheMiss)
}

func TestClearReportsCountAndEnqueuesWarmupOnly(t *testing.T) {
	f := newTradesFixture(t, nil)
	ctx := context.Background()

	_, err := f.uc.ImportCsv(ctx, importPayload)
	require.NoError(t, err)

	deleted, err := f.uc.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	types := f.events.types()
	require.Len(t, types, 2)
	assert.Equal(t, models.EventTradesCleared, types[1])

	// Import enqueued warmup+archive; clear adds warmup but never archive.
	assert.Equal(t, []string{JobAnalyticsWarmup, JobArchiveSync, JobAnalyticsWarmup}, f.jobs.enqueued())
}

func TestAssignStrategyRoundTrip(t *testing.T) {
	f := newTradesFixture(t, nil)
	ctx := context.Background()

	stratID, err := f.store.CreateStrategy(ctx, &models.Strategy{Name: "Momentum"})
	require.NoError(t, err)
	exec, err := f.uc.Add(ctx, writeReq("AAPL", "BUY", 10, 187.5, "2024-03-04T09:30:00Z"))
	require.NoError(t, err)

	require.NoError(t, f.uc.AssignStrategy(ctx, exec.ID, &stratID))
	got, err := f.uc.Get(ctx, exec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StrategyID)
	assert.Equal(t, stratID, *got.StrategyID)

	require.NoError(t, f.uc.AssignStrategy(ctx, exec.ID, nil))
	got, err = f.uc.Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StrategyID)
}

func TestSymbolsAfterImport(t *testing.T) {
	f := newTradesFixture(t, nil)
	ctx := context.Background()

	_, err := f.uc.ImportCsv(ctx, importPayload)
	require.NoError(t, err)

	syms, err := f.uc.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, syms)
}
