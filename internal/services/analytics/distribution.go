package analytics

import (
	"fmt"
	"math"
	"sort"

	"TradeLens/internal/domain/models"
	domsvc "TradeLens/internal/domain/service"
)

const defaultHistogramBins = 11

// Distribution builds the net-pnl histogram plus the concentration and
// stability figures. Percent bounds are validated upstream; this layer only
// computes.
type Distribution struct {
	bins int
}

func NewDistribution(bins int) *Distribution {
	if bins < 2 {
		bins = defaultHistogramBins
	}
	return &Distribution{bins: bins}
}

// Analyze computes the histogram and concentration payload for one pair set
// and top-percent value. An empty set reports stability 100 and a single
// explanatory insight.
func (d *Distribution) Analyze(pairs []models.PairedTrade, percent float64) models.DistributionConcentration {
	out := models.DistributionConcentration{ConcentrationPercent: percent}
	if len(pairs) == 0 {
		out.StabilityScore = 100
		out.Insights = []string{"No trades in the selected timeframe."}
		return out
	}

	pnls := netPnls(pairs)
	sorted := make([]float64, len(pnls))
	copy(sorted, pnls)
	sort.Float64s(sorted)

	out.MeanReturn = computeMean(pnls)
	out.MedianReturn = computeMedian(sorted)
	out.Histogram = d.histogram(pnls, sorted[0], sorted[len(sorted)-1])

	winners, losers := splitByOutcome(sorted)
	d.applyConcentration(&out, winners, losers)
	d.applyStability(&out, winners)
	out.Insights = d.insights(&out, len(pairs))

	return out
}

// histogram bins into equal widths spanning [min, max]. A degenerate range
// collapses to one unit-width bin centered on the value.
func (d *Distribution) histogram(pnls []float64, min, max float64) []models.HistogramBin {
	if min == max {
		bin := models.HistogramBin{BinStart: min - 0.5, BinEnd: max + 0.5, Count: len(pnls)}
		for _, v := range pnls {
			bin.TotalPnl += v
		}
		return []models.HistogramBin{bin}
	}

	width := (max - min) / float64(d.bins)
	bins := make([]models.HistogramBin, d.bins)
	for i := range bins {
		bins[i].BinStart = min + float64(i)*width
		bins[i].BinEnd = bins[i].BinStart + width
	}
	bins[d.bins-1].BinEnd = max

	for _, v := range pnls {
		idx := int((v - min) / width)
		if idx >= d.bins {
			idx = d.bins - 1 // max value lands in the closing bin
		}
		bins[idx].Count++
		bins[idx].TotalPnl += v
	}
	return bins
}

// splitByOutcome partitions an ascending pnl slice into winners sorted
// descending and losers sorted ascending (worst first). Breakevens belong to
// neither side.
func splitByOutcome(ascending []float64) (winners, losers []float64) {
	for _, v := range ascending {
		switch {
		case v > 0:
			winners = append(winners, v)
		case v < 0:
			losers = append(losers, v)
		}
	}
	for i, j := 0, len(winners)-1; i < j; i, j = i+1, j-1 {
		winners[i], winners[j] = winners[j], winners[i]
	}
	return winners, losers
}

func (d *Distribution) applyConcentration(out *models.DistributionConcentration, winners, losers []float64) {
	out.TopWinnerCount = topCount(out.ConcentrationPercent, len(winners))
	out.TopLoserCount = topCount(out.ConcentrationPercent, len(losers))

	var totalProfit, topProfit float64
	for i, v := range winners {
		totalProfit += v
		if i < out.TopWinnerCount {
			topProfit += v
		}
	}
	var totalLoss, topLoss float64
	for i, v := range losers {
		totalLoss += -v
		if i < out.TopLoserCount {
			topLoss += -v
		}
	}

	out.ProfitShareTop = ratioOrZero(topProfit, totalProfit)
	out.LossShareTop = ratioOrZero(topLoss, totalLoss)
}

// topCount is ceil(percent% of n), never exceeding n.
func topCount(percent float64, n int) int {
	if n == 0 {
		return 0
	}
	k := int(math.Ceil(percent / 100 * float64(n)))
	if k > n {
		k = n
	}
	return k
}

// applyStability scores how broadly profit is spread:
//
//	stability = 100 * (1 - 0.6*profitPenalty - 0.4*covPenalty)
//	profitPenalty = clamp((profit_share_top - 0.40) / 0.60, 0, 1)
//	covPenalty    = clamp(cov(winners) / 2, 0, 1)
//
// Monotone decreasing in both concentration and winner variance. A top share
// at or below 40% carries no concentration penalty.
func (d *Distribution) applyStability(out *models.DistributionConcentration, winners []float64) {
	profitPenalty := clamp01((out.ProfitShareTop - 0.40) / 0.60)

	covPenalty := 0.0
	if mean := computeMean(winners); mean > 0 {
		cov := computeStddev(winners, mean) / mean
		covPenalty = clamp01(cov / 2)
	}

	out.StabilityScore = 100 * (1 - 0.6*profitPenalty - 0.4*covPenalty)
}

func (d *Distribution) insights(out *models.DistributionConcentration, trades int) []string {
	var lines []string

	if trades < 30 {
		lines = append(lines, "Limited data: results may be noisy with fewer than 30 trades.")
	}

	pct := out.ConcentrationPercent
	share := out.ProfitShareTop * 100
	switch {
	case out.ProfitShareTop < 0.2:
		lines = append(lines, fmt.Sprintf("Your profits are well distributed. The top %g%% of trades account for %.1f%% of total profit, indicating good consistency.", pct, share))
	case out.ProfitShareTop <= 0.4:
		lines = append(lines, fmt.Sprintf("Your profits show moderate concentration. The top %g%% of trades generate %.1f%% of total profit.", pct, share))
	case out.ProfitShareTop <= 0.7:
		lines = append(lines, fmt.Sprintf("A small percentage of your trades generates a large share of profits. The top %g%% of trades produce %.1f%% of your total profit. Consider systematizing the conditions of your best trades.", pct, share))
	default:
		lines = append(lines, fmt.Sprintf("Severe profit concentration: the top %g%% of trades generate %.1f%% of total profit. Your winners are doing the heavy lifting. Without them, your equity curve would be much flatter.", pct, share))
	}

	lossShare := out.LossShareTop * 100
	switch {
	case out.LossShareTop < 0.2:
		lines = append(lines, fmt.Sprintf("Your losses are well distributed. The worst %g%% of trades account for %.1f%% of total loss.", pct, lossShare))
	case out.LossShareTop <= 0.5:
		lines = append(lines, fmt.Sprintf("Your losses show moderate concentration. The worst %g%% of trades account for %.1f%% of total loss.", pct, lossShare))
	case out.LossShareTop <= 0.7:
		lines = append(lines, fmt.Sprintf("A relatively small group of bad trades is responsible for most of your drawdowns. The worst %g%% of losing trades account for %.1f%% of total loss. Tightening risk controls could significantly stabilize your equity.", pct, lossShare))
	default:
		lines = append(lines, fmt.Sprintf("Severe loss concentration: the worst %g%% of trades cause %.1f%% of total loss. Consider hard stop rules, daily loss limits, or reducing position size on lower conviction trades.", pct, lossShare))
	}

	mean, median := out.MeanReturn, out.MedianReturn
	if mean != 0 && math.Abs(mean)/math.Max(math.Abs(median), 0.01) >= 1.5 {
		lines = append(lines, "Median and average returns differ significantly, suggesting performance is skewed by a small set of large winners or losers.")
	} else if math.Abs(mean-median) < math.Abs(mean)*0.1 {
		lines = append(lines, "Median and average returns are closely aligned, indicating consistent returns rather than rare outlier events.")
	}

	if out.StabilityScore >= 80 {
		lines = append(lines, "Your performance is broadly supported by many trades rather than a few outliers. This is a sign of a robust and repeatable process.")
	} else if out.StabilityScore < 50 {
		lines = append(lines, "Your results show high variance and instability. Focus on replicating your best setups while strictly capping downside on worst trades.")
	}

	return lines
}

var _ domsvc.DistributionAnalyzer = (*Distribution)(nil)
