package pairing

import (
	"testing"
	"time"

	"TradeLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func exec(id int64, symbol, side string, qty, price, fees float64, minute int) models.Execution {
	return models.Execution{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Fees:      fees,
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
		Status:    models.StatusFilled,
	}
}

func TestPairFIFO(t *testing.T) {
	execs := []models.Execution{
		exec(1, "AAPL", "BUY", 10, 10, 0, 0),
		exec(2, "AAPL", "BUY", 10, 12, 0, 1),
		exec(3, "AAPL", "SELL", 15, 15, 0, 2),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	require.Len(t, res.Pairs, 2)

	first := res.Pairs[0]
	assert.Equal(t, int64(1), first.EntryExecutionID)
	assert.InDelta(t, 10.0, first.Quantity, 1e-9)
	assert.InDelta(t, 10.0, first.EntryPrice, 1e-9)
	assert.InDelta(t, 50.0, first.GrossPnl, 1e-9)
	assert.Equal(t, models.DirectionLong, first.Direction)

	second := res.Pairs[1]
	assert.Equal(t, int64(2), second.EntryExecutionID)
	assert.InDelta(t, 5.0, second.Quantity, 1e-9)
	assert.InDelta(t, 12.0, second.EntryPrice, 1e-9)
	assert.InDelta(t, 15.0, second.GrossPnl, 1e-9)

	require.Len(t, res.OpenPositions, 1)
	open := res.OpenPositions[0]
	assert.Equal(t, models.DirectionLong, open.Side)
	assert.InDelta(t, 5.0, open.Quantity, 1e-9)
	assert.InDelta(t, 12.0, open.AveragePrice, 1e-9)
}

func TestPairLIFO(t *testing.T) {
	execs := []models.Execution{
		exec(1, "AAPL", "BUY", 10, 10, 0, 0),
		exec(2, "AAPL", "BUY", 10, 12, 0, 1),
		exec(3, "AAPL", "SELL", 15, 15, 0, 2),
	}

	res := NewMatcher().Pair(execs, models.PairingLIFO, nil, nil)

	require.Len(t, res.Pairs, 2)
	assert.Equal(t, int64(2), res.Pairs[0].EntryExecutionID)
	assert.InDelta(t, 10.0, res.Pairs[0].Quantity, 1e-9)
	assert.Equal(t, int64(1), res.Pairs[1].EntryExecutionID)
	assert.InDelta(t, 5.0, res.Pairs[1].Quantity, 1e-9)

	require.Len(t, res.OpenPositions, 1)
	assert.InDelta(t, 5.0, res.OpenPositions[0].Quantity, 1e-9)
	assert.InDelta(t, 10.0, res.OpenPositions[0].AveragePrice, 1e-9)
}

func TestPairShortRoundTrip(t *testing.T) {
	execs := []models.Execution{
		exec(1, "TSLA", "SELL", 5, 200, 1, 0),
		exec(2, "TSLA", "BUY", 5, 190, 1, 10),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	require.Len(t, res.Pairs, 1)
	p := res.Pairs[0]
	assert.Equal(t, models.DirectionShort, p.Direction)
	assert.Equal(t, int64(1), p.EntryExecutionID)
	assert.Equal(t, int64(2), p.ExitExecutionID)
	assert.InDelta(t, 200.0, p.EntryPrice, 1e-9)
	assert.InDelta(t, 190.0, p.ExitPrice, 1e-9)
	assert.InDelta(t, 50.0, p.GrossPnl, 1e-9)
	assert.InDelta(t, 48.0, p.NetPnl, 1e-9)
	assert.Empty(t, res.OpenPositions)
}

func TestPairUnmatchedSellOpensShort(t *testing.T) {
	execs := []models.Execution{
		exec(1, "NVDA", "SELL", 3, 500, 0, 0),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	assert.Empty(t, res.Pairs)
	require.Len(t, res.OpenPositions, 1)
	assert.Equal(t, models.DirectionShort, res.OpenPositions[0].Side)
	assert.InDelta(t, 3.0, res.OpenPositions[0].Quantity, 1e-9)
}

func TestFeeAllocationExactRemainder(t *testing.T) {
	// The BUY's $1 fee must split 0.40/0.60 across its two consuming
	// matches and sum back exactly, with the remainder on the final match.
	execs := []models.Execution{
		exec(1, "AAPL", "BUY", 10, 10, 1.0, 0),
		exec(2, "AAPL", "SELL", 4, 11, 0.3, 1),
		exec(3, "AAPL", "SELL", 6, 12, 0.3, 2),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	require.Len(t, res.Pairs, 2)
	assert.InDelta(t, 0.4, res.Pairs[0].EntryFees, 1e-12)
	assert.InDelta(t, 0.6, res.Pairs[1].EntryFees, 1e-12)
	assert.InDelta(t, 1.0, res.Pairs[0].EntryFees+res.Pairs[1].EntryFees, 1e-12)

	// Each SELL fully consumes in one match, so its whole fee lands there.
	assert.InDelta(t, 0.3, res.Pairs[0].ExitFees, 1e-12)
	assert.InDelta(t, 0.3, res.Pairs[1].ExitFees, 1e-12)
}

func TestFeeAllocationThirds(t *testing.T) {
	// 1/3 proportions do not divide evenly in binary; the final match takes
	// whatever is left so the total is exact.
	execs := []models.Execution{
		exec(1, "AAPL", "BUY", 9, 10, 1.0, 0),
		exec(2, "AAPL", "SELL", 3, 11, 0, 1),
		exec(3, "AAPL", "SELL", 3, 11, 0, 2),
		exec(4, "AAPL", "SELL", 3, 11, 0, 3),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	require.Len(t, res.Pairs, 3)
	var total float64
	for _, p := range res.Pairs {
		total += p.EntryFees
	}
	assert.Equal(t, 1.0, total)
}

func TestOptionsMultiplier(t *testing.T) {
	execs := []models.Execution{
		exec(1, "SPY251218C00679000", "BUY", 2, 3.50, 1.30, 0),
		exec(2, "SPY251218C00679000", "SELL", 2, 4.10, 1.30, 30),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	require.Len(t, res.Pairs, 1)
	p := res.Pairs[0]
	assert.Equal(t, "SPY", p.Underlying)
	assert.InDelta(t, 100.0, p.Multiplier, 1e-9)
	// (4.10-3.50)*2*100
	assert.InDelta(t, 120.0, p.GrossPnl, 1e-9)
	// fees ride inside the multiplied net, matching contract pnl accounting
	assert.InDelta(t, (1.2-2.6)*100, p.NetPnl, 1e-9)
	assert.InDelta(t, 1.30, p.EntryFees, 1e-9)
}

func TestDateFilterAppliesToExitOnly(t *testing.T) {
	execs := []models.Execution{
		exec(1, "AAPL", "BUY", 10, 10, 0, 0),
		exec(2, "AAPL", "SELL", 5, 12, 0, 60),      // exits inside window
		exec(3, "AAPL", "SELL", 5, 13, 0, 60*24*9), // exits after window
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(48 * time.Hour)

	res := NewMatcher().Pair(execs, models.PairingFIFO, &from, &to)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, int64(2), res.Pairs[0].ExitExecutionID)
	// Entry predates the window; the pair still counts.
	assert.True(t, res.Pairs[0].EntryTimestamp.Before(from))
	// Open positions reflect full history, not the window.
	assert.Empty(t, res.OpenPositions)
}

func TestTieBreakByExecutionID(t *testing.T) {
	// Same timestamp: lower id is the older lot.
	execs := []models.Execution{
		{ID: 7, Symbol: "AMD", Side: "BUY", Quantity: 1, Price: 100, Timestamp: base},
		{ID: 3, Symbol: "AMD", Side: "BUY", Quantity: 1, Price: 90, Timestamp: base},
		exec(9, "AMD", "SELL", 1, 110, 0, 5),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, int64(3), res.Pairs[0].EntryExecutionID)
	assert.InDelta(t, 90.0, res.Pairs[0].EntryPrice, 1e-9)
}

func TestConservationAcrossPartialMatches(t *testing.T) {
	execs := []models.Execution{
		exec(1, "AAPL", "BUY", 10, 10, 0, 0),
		exec(2, "AAPL", "BUY", 7, 11, 0, 1),
		exec(3, "AAPL", "SELL", 6, 12, 0, 2),
		exec(4, "AAPL", "SELL", 6, 13, 0, 3),
		exec(5, "AAPL", "SELL", 2, 14, 0, 4),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	matchedPerExec := make(map[int64]float64)
	for _, p := range res.Pairs {
		matchedPerExec[p.EntryExecutionID] += p.Quantity
		matchedPerExec[p.ExitExecutionID] += p.Quantity
	}
	byID := map[int64]float64{1: 10, 2: 7, 3: 6, 4: 6, 5: 2}
	for id, qty := range matchedPerExec {
		assert.LessOrEqual(t, qty, byID[id]+1e-9, "execution %d over-consumed", id)
	}

	// 17 bought, 14 sold: 3 still open.
	require.Len(t, res.OpenPositions, 1)
	assert.InDelta(t, 3.0, res.OpenPositions[0].Quantity, 1e-9)
}

func TestStrategyAttributionPrefersEntry(t *testing.T) {
	sidA := int64(1)
	sidB := int64(2)

	withStrategy := func(e models.Execution, sid *int64) models.Execution {
		e.StrategyID = sid
		return e
	}

	execs := []models.Execution{
		withStrategy(exec(1, "AAPL", "BUY", 5, 10, 0, 0), &sidA),
		withStrategy(exec(2, "AAPL", "SELL", 5, 11, 0, 1), &sidB),
		withStrategy(exec(3, "MSFT", "BUY", 5, 10, 0, 0), nil),
		withStrategy(exec(4, "MSFT", "SELL", 5, 11, 0, 1), &sidB),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	require.Len(t, res.Pairs, 2)
	for _, p := range res.Pairs {
		switch p.Symbol {
		case "AAPL":
			require.NotNil(t, p.StrategyID)
			assert.Equal(t, sidA, *p.StrategyID)
		case "MSFT":
			require.NotNil(t, p.StrategyID)
			assert.Equal(t, sidB, *p.StrategyID)
		}
	}
}

func TestPairEmptyInput(t *testing.T) {
	res := NewMatcher().Pair(nil, models.PairingFIFO, nil, nil)
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.OpenPositions)
}

func TestPairIgnoresMalformedExecutions(t *testing.T) {
	execs := []models.Execution{
		exec(1, "AAPL", "HOLD", 5, 10, 0, 0),
		{ID: 2, Symbol: "AAPL", Side: "BUY", Quantity: 0, Price: 10, Timestamp: base},
		exec(3, "AAPL", "buy", 5, 10, 0, 1),
		exec(4, "AAPL", "sell", 5, 12, 0, 2),
	}

	res := NewMatcher().Pair(execs, models.PairingFIFO, nil, nil)

	// Lower-cased sides still match; the HOLD and zero-qty rows do not.
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, int64(3), res.Pairs[0].EntryExecutionID)
	assert.Equal(t, int64(4), res.Pairs[0].ExitExecutionID)
}

func TestPairDeterministic(t *testing.T) {
	execs := []models.Execution{
		exec(1, "AAPL", "BUY", 10, 10, 0.5, 0),
		exec(2, "TSLA", "SELL", 4, 200, 0.5, 1),
		exec(3, "AAPL", "SELL", 6, 12, 0.5, 2),
		exec(4, "TSLA", "BUY", 4, 195, 0.5, 3),
	}

	a := NewMatcher().Pair(execs, models.PairingLIFO, nil, nil)
	b := NewMatcher().Pair(execs, models.PairingLIFO, nil, nil)

	assert.Equal(t, a, b)
}
