package analytics

import (
	"sort"
	"strings"

	"TradeLens/internal/domain/models"
	domsvc "TradeLens/internal/domain/service"
	"TradeLens/pkg/util"
)

// openQtyEpsilon hides residuals that only exist as float dust.
const openQtyEpsilon = 1e-4

// DashboardReporter derives the calendar series and rankings the dashboard
// renders. Pure over its inputs like the analyzers.
type DashboardReporter struct{}

func NewDashboardReporter() *DashboardReporter {
	return &DashboardReporter{}
}

// DailyPnl merges two calendars: execution days carry the activity count,
// pair exit days carry the realized pnl. A day appearing in either source is
// emitted; most recent first.
func (r *DashboardReporter) DailyPnl(execs []models.Execution, pairs []models.PairedTrade) []models.DailyPnl {
	counts := make(map[string]int)
	for i := range execs {
		if !strings.EqualFold(execs[i].Status, models.StatusFilled) {
			continue
		}
		counts[util.DayKey(execs[i].Timestamp)]++
	}

	pnls := make(map[string]float64)
	for i := range pairs {
		pnls[util.DayKey(pairs[i].ExitTimestamp)] += pairs[i].NetPnl
	}

	days := make(map[string]struct{}, len(counts)+len(pnls))
	for d := range counts {
		days[d] = struct{}{}
	}
	for d := range pnls {
		days[d] = struct{}{}
	}

	out := make([]models.DailyPnl, 0, len(days))
	for d := range days {
		count := counts[d]
		if count == 0 {
			count = 1 // day known only through a pair exit
		}
		out = append(out, models.DailyPnl{Date: d, ProfitLoss: pnls[d], TradeCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// EquityCurve folds pairs into a per-day cumulative series and locates the
// worst peak-to-trough window.
func (r *DashboardReporter) EquityCurve(pairs []models.PairedTrade) models.EquityCurve {
	daily := make(map[string]float64)
	for i := range pairs {
		daily[util.DayKey(pairs[i].ExitTimestamp)] += pairs[i].NetPnl
	}

	dates := make([]string, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	curve := models.EquityCurve{Points: make([]models.EquityPoint, 0, len(dates))}
	var cumulative, peak float64
	peakDate := ""
	for _, d := range dates {
		cumulative += daily[d]
		if cumulative > peak {
			peak = cumulative
			peakDate = d
		}
		drawdown := peak - cumulative
		if drawdown > curve.MaxDrawdown {
			curve.MaxDrawdown = drawdown
			curve.MaxDrawdownStart = peakDate
			curve.MaxDrawdownEnd = d
		}
		curve.Points = append(curve.Points, models.EquityPoint{
			Date:          d,
			DailyPnl:      daily[d],
			CumulativePnl: cumulative,
			Drawdown:      drawdown,
		})
	}
	curve.FinalPnl = cumulative
	return curve
}

// SymbolPnl groups closed pairs and open residuals per underlying. Win rate
// counts only decisive outcomes; breakevens stay out of the denominator.
func (r *DashboardReporter) SymbolPnl(pairs []models.PairedTrade, open []models.OpenPosition) []models.SymbolPnl {
	bySymbol := make(map[string]*models.SymbolPnl)
	row := func(symbol string) *models.SymbolPnl {
		if s, ok := bySymbol[symbol]; ok {
			return s
		}
		s := &models.SymbolPnl{Symbol: symbol}
		bySymbol[symbol] = s
		return s
	}

	for i := range pairs {
		p := &pairs[i]
		s := row(p.Underlying)
		s.ClosedPositions++
		s.TotalGrossPnl += p.GrossPnl
		s.TotalNetPnl += p.NetPnl
		s.TotalFees += p.EntryFees + p.ExitFees
		switch {
		case p.NetPnl > 0:
			s.WinningTrades++
		case p.NetPnl < 0:
			s.LosingTrades++
		}
	}

	// Long and short residuals net against each other per underlying.
	netOpen := make(map[string]float64)
	for i := range open {
		qty := open[i].Quantity
		if open[i].Side == models.DirectionShort {
			qty = -qty
		}
		netOpen[open[i].Underlying] += qty
	}
	for symbol, qty := range netOpen {
		if qty > -openQtyEpsilon && qty < openQtyEpsilon {
			continue
		}
		if qty < 0 {
			qty = -qty
		}
		row(symbol).OpenPositionQty = qty
	}

	out := make([]models.SymbolPnl, 0, len(bySymbol))
	for _, s := range bySymbol {
		if decisive := s.WinningTrades + s.LosingTrades; decisive > 0 {
			s.WinRate = float64(s.WinningTrades) / float64(decisive)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalNetPnl == out[j].TotalNetPnl {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].TotalNetPnl > out[j].TotalNetPnl
	})
	return out
}

// StrategyPerformance attributes pairs to their strategies, with an
// Unassigned row for untagged pairs. Most-traded first.
func (r *DashboardReporter) StrategyPerformance(pairs []models.PairedTrade, strategyNames map[int64]string) []models.StrategyPerformance {
	byStrategy := make(map[int64]*models.StrategyPerformance)
	var unassigned *models.StrategyPerformance

	for i := range pairs {
		p := &pairs[i]
		var perf *models.StrategyPerformance
		if p.StrategyID == nil {
			if unassigned == nil {
				unassigned = &models.StrategyPerformance{StrategyName: "Unassigned"}
			}
			perf = unassigned
		} else {
			id := *p.StrategyID
			perf = byStrategy[id]
			if perf == nil {
				name, ok := strategyNames[id]
				if !ok {
					name = "Unknown"
				}
				sid := id
				perf = &models.StrategyPerformance{StrategyID: &sid, StrategyName: name}
				byStrategy[id] = perf
			}
		}
		perf.TradeCount++
		perf.TotalVolume += p.Quantity * p.EntryPrice * p.Multiplier
		perf.EstimatedPnl += p.NetPnl
	}

	out := make([]models.StrategyPerformance, 0, len(byStrategy)+1)
	for _, perf := range byStrategy {
		out = append(out, *perf)
	}
	if unassigned != nil {
		out = append(out, *unassigned)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeCount == out[j].TradeCount {
			return out[i].StrategyName < out[j].StrategyName
		}
		return out[i].TradeCount > out[j].TradeCount
	})
	return out
}

// RecentTrades returns the latest closed pairs with display fields filled
// in. limit 0 means all.
func (r *DashboardReporter) RecentTrades(pairs []models.PairedTrade, strategyNames map[int64]string, limit int) []models.RecentTrade {
	ordered := sortByExit(pairs)
	// newest first
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]models.RecentTrade, 0, len(ordered))
	for i := range ordered {
		p := &ordered[i]
		rt := models.RecentTrade{
			Symbol:         p.Symbol,
			Direction:      p.Direction,
			Quantity:       p.Quantity,
			EntryPrice:     p.EntryPrice,
			ExitPrice:      p.ExitPrice,
			EntryTimestamp: p.EntryTimestamp.Format(util.TimestampFormat),
			ExitTimestamp:  p.ExitTimestamp.Format(util.TimestampFormat),
			GrossPnl:       p.GrossPnl,
			NetPnl:         p.NetPnl,
			HoldingSeconds: p.HoldingSeconds(),
			StrategyID:     p.StrategyID,
		}
		if cost := p.Quantity * p.EntryPrice * p.Multiplier; cost > 0 {
			rt.PnlPercent = p.NetPnl / cost * 100
		}
		if p.StrategyID != nil {
			rt.StrategyName = strategyNames[*p.StrategyID]
		}
		out = append(out, rt)
	}
	return out
}

// TopSymbols ranks underlyings by the size of their realized pnl, winners
// and losers alike. limit 0 means all.
func (r *DashboardReporter) TopSymbols(pairs []models.PairedTrade, limit int) []models.TopSymbol {
	bySymbol := make(map[string]*models.TopSymbol)
	for i := range pairs {
		p := &pairs[i]
		t := bySymbol[p.Underlying]
		if t == nil {
			t = &models.TopSymbol{Symbol: p.Underlying}
			bySymbol[p.Underlying] = t
		}
		t.TradeCount++
		t.NetPnl += p.NetPnl
	}

	out := make([]models.TopSymbol, 0, len(bySymbol))
	for _, t := range bySymbol {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].NetPnl, out[j].NetPnl
		if ai < 0 {
			ai = -ai
		}
		if aj < 0 {
			aj = -aj
		}
		if ai == aj {
			return out[i].Symbol < out[j].Symbol
		}
		return ai > aj
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ domsvc.Reporter = (*DashboardReporter)(nil)
