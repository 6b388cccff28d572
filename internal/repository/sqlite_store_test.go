package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleExec(symbol, side string, qty, price float64, minute int) *models.Execution {
	return &models.Execution{
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: time.Date(2024, 3, 4, 9, 30+minute, 0, 0, time.UTC),
		OrderType: "MARKET",
		Status:    models.StatusFilled,
	}
}

func TestAddAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleExec("AAPL", models.SideBuy, 10, 187.5, 0)
	in.Fees = 1.25
	in.Notes = "opening leg"

	id, err := s.Add(ctx, in)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, models.SideBuy, got.Side)
	assert.InDelta(t, 10.0, got.Quantity, 1e-9)
	assert.InDelta(t, 187.5, got.Price, 1e-9)
	assert.InDelta(t, 1.25, got.Fees, 1e-9)
	assert.Equal(t, "opening leg", got.Notes)
	assert.True(t, got.Timestamp.Equal(in.Timestamp))
	assert.Nil(t, got.StrategyID)
}

func TestAddBatchSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []*models.Execution{
		sampleExec("AAPL", models.SideBuy, 10, 100, 0),
		sampleExec("AAPL", models.SideSell, 10, 105, 1),
	}
	res, err := s.AddBatch(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Duplicates)

	// Same file imported twice plus one new row.
	second := []*models.Execution{
		sampleExec("AAPL", models.SideBuy, 10, 100, 0),
		sampleExec("AAPL", models.SideSell, 10, 105, 1),
		sampleExec("TSLA", models.SideBuy, 5, 250, 2),
	}
	res, err = s.AddBatch(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Duplicates)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAddBatchDuplicateWithinBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.AddBatch(ctx, []*models.Execution{
		sampleExec("MSFT", models.SideBuy, 1, 400, 0),
		sampleExec("MSFT", models.SideBuy, 1, 400, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
}

func TestVersionBumpsOnWritesOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v0 := s.Version()
	assert.NotZero(t, v0)

	_, err := s.Add(ctx, sampleExec("AAPL", models.SideBuy, 10, 100, 0))
	require.NoError(t, err)
	v1 := s.Version()
	assert.Greater(t, v1, v0)

	_, err = s.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, v1, s.Version())

	// All-duplicate batch writes nothing.
	_, err = s.AddBatch(ctx, []*models.Execution{sampleExec("AAPL", models.SideBuy, 10, 100, 0)})
	require.NoError(t, err)
	assert.Equal(t, v1, s.Version())
}

func TestListDateRangeInclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Add(ctx, sampleExec("AAPL", models.SideBuy, 1, 100, i))
		require.NoError(t, err)
	}

	from := time.Date(2024, 3, 4, 9, 31, 0, 0, time.UTC)
	to := time.Date(2024, 3, 4, 9, 33, 0, 0, time.UTC)
	execs, err := s.List(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.True(t, execs[0].Timestamp.Equal(from))
	assert.True(t, execs[2].Timestamp.Equal(to))
}

func TestListFilledExcludesOtherStatuses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filled := sampleExec("AAPL", models.SideBuy, 1, 100, 0)
	pending := sampleExec("AAPL", models.SideSell, 1, 105, 1)
	pending.Status = "PENDING"
	_, err := s.Add(ctx, filled)
	require.NoError(t, err)
	_, err = s.Add(ctx, pending)
	require.NoError(t, err)

	execs, err := s.ListFilled(ctx)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.SideBuy, execs[0].Side)
}

func TestUpdateMissingRowReturnsNoRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := sampleExec("AAPL", models.SideBuy, 1, 100, 0)
	e.ID = 42
	err := s.Update(ctx, e)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	err = s.Delete(ctx, 42)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestClearReportsDeletedCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.Add(ctx, sampleExec("AAPL", models.SideBuy, 1, 100, i))
		require.NoError(t, err)
	}

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSymbolsDistinctSorted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, sym := range []string{"TSLA", "AAPL", "TSLA", "MSFT"} {
		_, err := s.Add(ctx, sampleExec(sym, models.SideBuy, 1, 100, 0))
		require.NoError(t, err)
	}

	symbols, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, symbols)
}

func TestStrategyLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateStrategy(ctx, &models.Strategy{Name: "Breakout", Color: "#ff0000"})
	require.NoError(t, err)
	require.Positive(t, id)

	execID, err := s.Add(ctx, sampleExec("AAPL", models.SideBuy, 1, 100, 0))
	require.NoError(t, err)
	require.NoError(t, s.AssignStrategy(ctx, execID, &id))

	got, err := s.GetByID(ctx, execID)
	require.NoError(t, err)
	require.NotNil(t, got.StrategyID)
	assert.Equal(t, id, *got.StrategyID)

	require.NoError(t, s.UpdateStrategy(ctx, &models.Strategy{ID: id, Name: "Momentum", Color: "#00ff00"}))
	list, err := s.ListStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Momentum", list[0].Name)
	assert.False(t, list[0].CreatedAt.IsZero())

	// Deleting a strategy detaches it from executions instead of cascading.
	require.NoError(t, s.DeleteStrategy(ctx, id))
	got, err = s.GetByID(ctx, execID)
	require.NoError(t, err)
	assert.Nil(t, got.StrategyID)

	list, err = s.ListStrategies(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteStrategyMissing(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteStrategy(context.Background(), 99)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestCreateStrategyDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateStrategy(ctx, &models.Strategy{Name: "Breakout"})
	require.NoError(t, err)

	_, err = s.CreateStrategy(ctx, &models.Strategy{Name: "Breakout"})
	assert.True(t, errors.Is(err, domrepo.ErrDuplicate))
}

func TestAssignStrategyClearsWithNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stratID, err := s.CreateStrategy(ctx, &models.Strategy{Name: "Scalp"})
	require.NoError(t, err)
	execID, err := s.Add(ctx, sampleExec("AAPL", models.SideBuy, 1, 100, 0))
	require.NoError(t, err)

	require.NoError(t, s.AssignStrategy(ctx, execID, &stratID))
	require.NoError(t, s.AssignStrategy(ctx, execID, nil))

	got, err := s.GetByID(ctx, execID)
	require.NoError(t, err)
	assert.Nil(t, got.StrategyID)
}
