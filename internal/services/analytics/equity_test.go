package analytics

import (
	"testing"
	"time"

	"TradeLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execOn(day int, symbol string) models.Execution {
	return models.Execution{
		Symbol:    symbol,
		Side:      models.SideBuy,
		Quantity:  1,
		Price:     100,
		Timestamp: t0.AddDate(0, 0, day),
		Status:    models.StatusFilled,
	}
}

func TestDailyPnlMergesCalendars(t *testing.T) {
	execs := []models.Execution{
		execOn(0, "AAPL"),
		execOn(0, "AAPL"),
		execOn(1, "TSLA"),
	}
	pairs := []models.PairedTrade{
		pairOnDay(0, 0, 100),
		pairOnDay(2, 0, -50),
	}

	out := NewDashboardReporter().DailyPnl(execs, pairs)

	require.Len(t, out, 3)
	// most recent first
	assert.Equal(t, "2024-03-06", out[0].Date)
	assert.InDelta(t, -50.0, out[0].ProfitLoss, 1e-9)
	assert.Equal(t, 1, out[0].TradeCount)

	assert.Equal(t, "2024-03-05", out[1].Date)
	assert.Zero(t, out[1].ProfitLoss)
	assert.Equal(t, 1, out[1].TradeCount)

	assert.Equal(t, "2024-03-04", out[2].Date)
	assert.InDelta(t, 100.0, out[2].ProfitLoss, 1e-9)
	assert.Equal(t, 2, out[2].TradeCount)
}

func TestDailyPnlSkipsUnfilledExecutions(t *testing.T) {
	pending := execOn(0, "AAPL")
	pending.Status = "PENDING"

	out := NewDashboardReporter().DailyPnl([]models.Execution{pending}, nil)

	assert.Empty(t, out)
}

func TestEquityCurveDrawdownWindow(t *testing.T) {
	pairs := []models.PairedTrade{
		pairOnDay(0, 0, 100),
		pairOnDay(1, 0, -30),
		pairOnDay(2, 0, -40),
		pairOnDay(3, 0, 10),
	}

	curve := NewDashboardReporter().EquityCurve(pairs)

	require.Len(t, curve.Points, 4)
	assert.InDelta(t, 100.0, curve.Points[0].CumulativePnl, 1e-9)
	assert.InDelta(t, 30.0, curve.Points[2].CumulativePnl, 1e-9)
	assert.InDelta(t, 40.0, curve.FinalPnl, 1e-9)

	assert.InDelta(t, 70.0, curve.MaxDrawdown, 1e-9)
	assert.Equal(t, "2024-03-04", curve.MaxDrawdownStart)
	assert.Equal(t, "2024-03-06", curve.MaxDrawdownEnd)
	assert.InDelta(t, 60.0, curve.Points[3].Drawdown, 1e-9)
}

func TestEquityCurveEmpty(t *testing.T) {
	curve := NewDashboardReporter().EquityCurve(nil)

	assert.Empty(t, curve.Points)
	assert.Zero(t, curve.MaxDrawdown)
	assert.Empty(t, curve.MaxDrawdownStart)
}

func TestSymbolPnlNetsOpenSides(t *testing.T) {
	win := pairAt(0, 100)
	win.EntryFees = 1
	win.ExitFees = 2
	loss := pairAt(1, -20)
	other := pairAt(2, 40)
	other.Symbol = "TSLA"
	other.Underlying = "TSLA"

	open := []models.OpenPosition{
		{Symbol: "AAPL", Underlying: "AAPL", Side: models.DirectionLong, Quantity: 5},
		{Symbol: "AAPL", Underlying: "AAPL", Side: models.DirectionShort, Quantity: 2},
	}

	out := NewDashboardReporter().SymbolPnl([]models.PairedTrade{win, loss, other}, open)

	require.Len(t, out, 2)
	aapl := out[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, 2, aapl.ClosedPositions)
	assert.InDelta(t, 80.0, aapl.TotalNetPnl, 1e-9)
	assert.InDelta(t, 3.0, aapl.TotalFees, 1e-9)
	assert.InDelta(t, 3.0, aapl.OpenPositionQty, 1e-9)
	assert.InDelta(t, 0.5, aapl.WinRate, 1e-9)

	assert.Equal(t, "TSLA", out[1].Symbol)
	assert.Zero(t, out[1].OpenPositionQty)
}

func TestSymbolPnlWinRateSkipsBreakevens(t *testing.T) {
	pairs := []models.PairedTrade{pairAt(0, 100), pairAt(1, 0), pairAt(2, -50)}

	out := NewDashboardReporter().SymbolPnl(pairs, nil)

	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].ClosedPositions)
	assert.InDelta(t, 0.5, out[0].WinRate, 1e-9)
}

func TestStrategyPerformanceRows(t *testing.T) {
	pairs := []models.PairedTrade{
		withStrategy(pairAt(0, 50), 1),
		withStrategy(pairAt(1, 30), 1),
		withStrategy(pairAt(2, -10), 2),
		pairAt(3, 5),
	}
	names := map[int64]string{1: "Breakout", 2: "Fade"}

	out := NewDashboardReporter().StrategyPerformance(pairs, names)

	require.Len(t, out, 3)
	assert.Equal(t, "Breakout", out[0].StrategyName)
	assert.Equal(t, 2, out[0].TradeCount)
	assert.InDelta(t, 80.0, out[0].EstimatedPnl, 1e-9)
	assert.InDelta(t, 2000.0, out[0].TotalVolume, 1e-9)

	assert.ElementsMatch(t,
		[]string{"Breakout", "Fade", "Unassigned"},
		[]string{out[0].StrategyName, out[1].StrategyName, out[2].StrategyName})
	for _, row := range out {
		if row.StrategyName == "Unassigned" {
			assert.Nil(t, row.StrategyID)
		}
	}
}

func TestRecentTradesNewestFirst(t *testing.T) {
	pairs := []models.PairedTrade{
		withStrategy(pairAt(0, 10), 1),
		pairAt(30, 20),
		pairAt(60, -5),
	}
	names := map[int64]string{1: "Breakout"}

	out := NewDashboardReporter().RecentTrades(pairs, names, 2)

	require.Len(t, out, 2)
	assert.InDelta(t, -5.0, out[0].NetPnl, 1e-9)
	assert.InDelta(t, 20.0, out[1].NetPnl, 1e-9)
	assert.Equal(t, models.DirectionLong, out[0].Direction)
	assert.InDelta(t, 1800.0, out[0].HoldingSeconds, 1e-9)

	// net -5 on a 10 x 100 position
	assert.InDelta(t, -0.5, out[0].PnlPercent, 1e-9)

	ts, err := time.Parse(time.RFC3339, out[0].ExitTimestamp)
	require.NoError(t, err)
	assert.True(t, ts.After(t0))
}

func TestRecentTradesStrategyName(t *testing.T) {
	pairs := []models.PairedTrade{withStrategy(pairAt(0, 10), 1)}

	out := NewDashboardReporter().RecentTrades(pairs, map[int64]string{1: "Breakout"}, 5)

	require.Len(t, out, 1)
	assert.Equal(t, "Breakout", out[0].StrategyName)
	require.NotNil(t, out[0].StrategyID)
	assert.Equal(t, int64(1), *out[0].StrategyID)
}

func TestTopSymbolsRankByMagnitude(t *testing.T) {
	a := pairAt(0, 100)
	b := pairAt(1, -500)
	b.Symbol = "TSLA"
	b.Underlying = "TSLA"
	c := pairAt(2, 50)
	c.Symbol = "MSFT"
	c.Underlying = "MSFT"

	out := NewDashboardReporter().TopSymbols([]models.PairedTrade{a, b, c}, 2)

	require.Len(t, out, 2)
	assert.Equal(t, "TSLA", out[0].Symbol)
	assert.InDelta(t, -500.0, out[0].NetPnl, 1e-9)
	assert.Equal(t, "AAPL", out[1].Symbol)
}
