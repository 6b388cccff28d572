package analytics

import (
	"math"
	"sort"

	"TradeLens/internal/domain/models"
	domsvc "TradeLens/internal/domain/service"
	"TradeLens/pkg/util"
)

// MetricsCalculator computes the portfolio scalar battery over a pair set.
// Pure and stateless; zero input yields a zero-filled struct, never an error.
type MetricsCalculator struct{}

func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// Compute aggregates the date-filtered pairs. The strategy_* fields are
// computed from the unfiltered set so strategy totals stay stable across
// dashboard date windows; keep that asymmetry intact.
func (c *MetricsCalculator) Compute(filtered, all []models.PairedTrade) models.Metrics {
	m := models.Metrics{}
	ordered := sortByExit(filtered)

	var (
		totalNet, grossProfit, grossLoss float64
		sumWins, sumLosses               float64
		holdingTotal                     float64
		holdingCount                     int
		currentWins, currentLosses       int
	)
	m.TotalTrades = len(ordered)
	m.LargestLoss = 0

	daily := make(map[string]float64)

	for i := range ordered {
		p := &ordered[i]
		pnl := p.NetPnl

		totalNet += pnl
		m.TotalFees += p.EntryFees + p.ExitFees
		m.TotalVolume += p.Quantity * p.EntryPrice * p.Multiplier
		daily[util.DayKey(p.ExitTimestamp)] += pnl

		if hs := p.HoldingSeconds(); hs >= 0 {
			holdingTotal += hs
			holdingCount++
		}

		switch {
		case pnl > 0:
			m.WinningTrades++
			sumWins += pnl
			grossProfit += pnl
			if pnl > m.LargestWin {
				m.LargestWin = pnl
			}
			currentLosses = 0
			currentWins++
			if currentWins > m.ConsecutiveWins {
				m.ConsecutiveWins = currentWins
			}
		case pnl < 0:
			m.LosingTrades++
			sumLosses += pnl
			grossLoss += math.Abs(pnl)
			if pnl < m.LargestLoss {
				m.LargestLoss = pnl
			}
			currentWins = 0
			currentLosses++
			if currentLosses > m.ConsecutiveLosses {
				m.ConsecutiveLosses = currentLosses
			}
		}
	}

	m.CurrentWinStreak = currentWins
	m.CurrentLossStreak = currentLosses
	m.NetProfit = totalNet

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
		m.AverageTrade = totalNet / float64(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AverageProfit = sumWins / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = sumLosses / float64(m.LosingTrades) // stays negative
	}
	if holdingCount > 0 {
		m.AverageHoldingSeconds = holdingTotal / float64(holdingCount)
	}

	m.ProfitFactor = profitFactor(grossProfit, grossLoss)
	m.Expectancy = m.WinRate*m.AverageProfit + (1-m.WinRate)*m.AverageLoss
	m.RiskReward = math.Abs(ratioOrZero(m.AverageProfit, m.AverageLoss))
	m.MaxDrawdown = computeMaxDrawdown(netPnls(ordered))

	c.applyDailySeries(&m, daily)
	c.applyStrategyTotals(&m, all)

	return m
}

// profitFactor reports gross profit over absolute gross loss. No losers but
// winners caps at the sentinel; an empty ledger reports 0.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss > 0 {
		return grossProfit / grossLoss
	}
	if grossProfit > 0 {
		return models.ProfitFactorCap
	}
	return 0
}

func (c *MetricsCalculator) applyDailySeries(m *models.Metrics, daily map[string]float64) {
	if len(daily) == 0 {
		return
	}

	// Walk days in calendar order so float accumulation is reproducible
	// and repeated calls stay bit-identical.
	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)

	series := make([]float64, 0, len(days))
	for i, d := range days {
		pnl := daily[d]
		series = append(series, pnl)
		if i == 0 {
			m.BestDay = pnl
			m.WorstDay = pnl
			continue
		}
		if pnl > m.BestDay {
			m.BestDay = pnl
		}
		if pnl < m.WorstDay {
			m.WorstDay = pnl
		}
	}

	m.TradesPerDay = float64(m.TotalTrades) / float64(len(daily))

	mean := computeMean(series)
	stdev := computeStddev(series, mean)
	if stdev > 0 {
		m.SharpeRatio = mean / stdev
	}
}

func (c *MetricsCalculator) applyStrategyTotals(m *models.Metrics, all []models.PairedTrade) {
	for i := range all {
		p := &all[i]
		if p.StrategyID == nil {
			continue
		}
		m.StrategyTrades++
		m.StrategyVolume += p.Quantity * p.EntryPrice * p.Multiplier
		m.StrategyPnl += p.NetPnl
	}
}

var _ domsvc.MetricsAnalyzer = (*MetricsCalculator)(nil)
