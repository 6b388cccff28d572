package analytics

import (
	"fmt"

	"TradeLens/internal/domain/models"
	domsvc "TradeLens/internal/domain/service"
)

// Tilt category labels.
const (
	TiltCalm         = "Calm & Disciplined"
	TiltModerate     = "Moderate Tilt Risk"
	TiltHigh         = "High Tilt Risk"
	TiltInsufficient = "Insufficient Data"
)

const (
	defaultTiltMinTrades  = 10
	defaultMaxStreakDepth = 4
	defaultMinSampleSize  = 20

	// A win-rate drop of 50 points after losses saturates its score
	// component.
	maxWinRateDrop = 0.5
	// Win-rate drop required before a streak length becomes a stop
	// recommendation.
	recommendDropThreshold = 0.15
)

// TiltAnalyzer measures decision decay after losses over the chronological
// pair sequence.
type TiltAnalyzer struct {
	minTrades     int
	maxDepth      int
	minSampleSize int
}

func NewTiltAnalyzer(minTrades, maxDepth, minSampleSize int) *TiltAnalyzer {
	if minTrades <= 0 {
		minTrades = defaultTiltMinTrades
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxStreakDepth
	}
	if minSampleSize <= 0 {
		minSampleSize = defaultMinSampleSize
	}
	return &TiltAnalyzer{minTrades: minTrades, maxDepth: maxDepth, minSampleSize: minSampleSize}
}

// Assess orders pairs by exit and computes the conditional battery. Below
// minTrades the result is zero-valued with the Insufficient Data category;
// an empty journal is a normal state, never an error.
func (t *TiltAnalyzer) Assess(pairs []models.PairedTrade) models.TiltStats {
	stats := models.TiltStats{TotalTrades: len(pairs)}
	if len(pairs) < t.minTrades {
		stats.TiltCategory = TiltInsufficient
		stats.CoachingLines = []string{
			fmt.Sprintf("Not enough trade history to evaluate tilt yet. Need at least %d trades.", t.minTrades),
		}
		return stats
	}

	pnls := netPnls(sortByExit(pairs))

	var wins, losses int
	var lossSum, pnlSum float64
	for _, v := range pnls {
		pnlSum += v
		switch {
		case v > 0:
			wins++
		case v < 0:
			losses++
			lossSum += v
		}
	}
	stats.BaselineWinRate = float64(wins) / float64(len(pnls))
	baselineLossRate := float64(losses) / float64(len(pnls))
	baselineAvgPnl := pnlSum / float64(len(pnls))
	if losses > 0 {
		stats.AvgLossNormally = lossSum / float64(losses)
	}

	t.applyConditionals(&stats, pnls)
	stats.StreakStats = t.streakStats(pnls)
	stats.RecommendedStreak = t.recommendStreak(stats.BaselineWinRate, stats.StreakStats)

	afterLossAvgPnl := baselineAvgPnl
	if len(stats.StreakStats) > 0 && stats.StreakStats[0].SampleSize > 0 {
		afterLossAvgPnl = stats.StreakStats[0].AvgPnl
	}
	stats.TiltScore = t.score(&stats, baselineLossRate, baselineAvgPnl, afterLossAvgPnl)

	switch {
	case stats.TiltScore <= 3:
		stats.TiltCategory = TiltCalm
	case stats.TiltScore <= 7:
		stats.TiltCategory = TiltModerate
	default:
		stats.TiltCategory = TiltHigh
	}
	stats.CoachingLines = t.coachingLines(&stats)

	return stats
}

// applyConditionals fills the single-step after-loss / after-win figures.
// Breakeven outcomes are skipped when counting, matching how streaks treat
// them. Conditionals with no samples fall back to the baseline so the UI
// never shows a spurious 0%.
func (t *TiltAnalyzer) applyConditionals(stats *models.TiltStats, pnls []float64) {
	var afterLossWins, afterLossLosses, afterLossTotal int
	var afterLossLossSum float64
	var afterWinWins, afterWinTotal int

	for i := 1; i < len(pnls); i++ {
		if pnls[i] == 0 {
			continue
		}
		switch {
		case pnls[i-1] < 0:
			afterLossTotal++
			if pnls[i] > 0 {
				afterLossWins++
			} else {
				afterLossLosses++
				afterLossLossSum += pnls[i]
			}
		case pnls[i-1] > 0:
			afterWinTotal++
			if pnls[i] > 0 {
				afterWinWins++
			}
		}
	}

	stats.WinRateAfterLoss = stats.BaselineWinRate
	if afterLossTotal > 0 {
		stats.WinRateAfterLoss = float64(afterLossWins) / float64(afterLossTotal)
		stats.ProbLossAfterLoss = float64(afterLossLosses) / float64(afterLossTotal)
	}
	stats.AvgLossAfterLoss = stats.AvgLossNormally
	if afterLossLosses > 0 {
		stats.AvgLossAfterLoss = afterLossLossSum / float64(afterLossLosses)
	}
	stats.WinRateAfterWin = stats.BaselineWinRate
	if afterWinTotal > 0 {
		stats.WinRateAfterWin = float64(afterWinWins) / float64(afterWinTotal)
	}
}

// streakStats computes outcomes after at least k consecutive losses for
// k = 1..maxDepth. Unlike the single-step conditionals these report raw
// zeros when no window exists; sample_size exposes how thin the evidence is.
func (t *TiltAnalyzer) streakStats(pnls []float64) []models.StreakStats {
	out := make([]models.StreakStats, t.maxDepth)
	sums := make([]float64, t.maxDepth)
	winCounts := make([]int, t.maxDepth)
	for k := range out {
		out[k].StreakLength = k + 1
	}

	run := 0 // consecutive losses immediately before index i
	for i, v := range pnls {
		if i > 0 && v != 0 {
			for k := 0; k < t.maxDepth && k < run; k++ {
				out[k].SampleSize++
				sums[k] += v
				if v > 0 {
					winCounts[k]++
				}
			}
		}
		if v < 0 {
			run++
		} else {
			run = 0
		}
	}

	for k := range out {
		if out[k].SampleSize > 0 {
			out[k].WinRate = float64(winCounts[k]) / float64(out[k].SampleSize)
			out[k].AvgPnl = sums[k] / float64(out[k].SampleSize)
		}
	}
	return out
}

// recommendStreak picks the smallest k whose evidence clears the sample
// minimum, shows a material win-rate drop, and carries negative expectancy.
// 0 means no streak length qualifies.
func (t *TiltAnalyzer) recommendStreak(baseline float64, streaks []models.StreakStats) int {
	for _, s := range streaks {
		if s.SampleSize < t.minSampleSize {
			continue
		}
		if baseline-s.WinRate >= recommendDropThreshold && s.AvgPnl < 0 {
			return s.StreakLength
		}
	}
	return 0
}

// score combines four capped components into [0,10]:
//
//	3 * winRateDrop/0.5      after-loss win-rate decay
//	3 * (lossGrowth-1)*2     losses growing once losing
//	2 * chase                expected-pnl deterioration after a loss,
//	                         in units of the typical loss
//	2 * excessChain*4        loss-chain probability beyond baseline
func (t *TiltAnalyzer) score(stats *models.TiltStats, baselineLossRate, baselineAvgPnl, afterLossAvgPnl float64) float64 {
	drop := stats.BaselineWinRate - stats.WinRateAfterLoss
	score1 := 3 * clamp01(drop/maxWinRateDrop)

	score2 := 0.0
	if stats.AvgLossNormally < 0 && stats.AvgLossAfterLoss < 0 {
		growth := -stats.AvgLossAfterLoss / -stats.AvgLossNormally
		score2 = 3 * clamp01((growth-1)*2)
	}

	score3 := 0.0
	if stats.AvgLossNormally < 0 {
		chase := (baselineAvgPnl - afterLossAvgPnl) / -stats.AvgLossNormally
		score3 = 2 * clamp01(chase)
	}

	score4 := 2 * clamp01((stats.ProbLossAfterLoss-baselineLossRate)*4)

	total := score1 + score2 + score3 + score4
	if total > 10 {
		return 10
	}
	if total < 0 {
		return 0
	}
	return total
}

func (t *TiltAnalyzer) coachingLines(stats *models.TiltStats) []string {
	var lines []string
	switch stats.TiltCategory {
	case TiltCalm:
		lines = append(lines,
			"Your performance after losing trades is similar to your baseline. There is no strong evidence of emotional tilt.",
			fmt.Sprintf("You win approximately %.1f%% overall and %.1f%% after a loss. Loss severity does not increase meaningfully after losing.",
				stats.BaselineWinRate*100, stats.WinRateAfterLoss*100))
		if stats.RecommendedStreak > 0 {
			lines = append(lines, fmt.Sprintf("Based on your history, consider stopping for the day after %d losing trades in a row.", stats.RecommendedStreak))
		} else {
			lines = append(lines, "A fixed 'stop after N losses' rule is optional for you. A standard daily loss cap is likely sufficient.")
		}
	case TiltModerate:
		lines = append(lines,
			"Your performance degrades after losing trades, but not catastrophically.",
			fmt.Sprintf("Your win rate drops from %.1f%% to %.1f%% after a loss, and the chance of another loss after losing is %.1f%%.",
				stats.BaselineWinRate*100, stats.WinRateAfterLoss*100, stats.ProbLossAfterLoss*100))
		if stats.RecommendedStreak > 0 {
			lines = append(lines, fmt.Sprintf("Based on your history, you should strongly consider stopping for the day after %d losing trades in a row. Beyond this streak, your expected PnL is consistently negative.", stats.RecommendedStreak))
		} else {
			lines = append(lines, "There is no single streak length that stands out as a clear cutoff, but you should pay attention to your behavior after losses and enforce a daily loss cap.")
		}
	default:
		afterTwo := stats.WinRateAfterLoss
		if len(stats.StreakStats) > 1 && stats.StreakStats[1].SampleSize > 0 {
			afterTwo = stats.StreakStats[1].WinRate
		}
		lines = append(lines,
			"Your trading shows strong signs of emotional tilt after losses.",
			fmt.Sprintf("Your win rate falls from %.1f%% to %.1f%% after a loss, and to %.1f%% after two losses in a row.",
				stats.BaselineWinRate*100, stats.WinRateAfterLoss*100, afterTwo*100))
		if stats.AvgLossAfterLoss < stats.AvgLossNormally {
			lines = append(lines, "Your average loss becomes larger after losing, which suggests revenge trading or loss of discipline.")
		}
		if stats.RecommendedStreak > 0 {
			lines = append(lines, fmt.Sprintf("Recommendation: set a hard rule to stop trading for the day after %d consecutive losing trades.", stats.RecommendedStreak))
		}
		lines = append(lines, "Also consider using a fixed maximum daily loss and reducing position size immediately after a loss.")
	}
	return lines
}

var _ domsvc.TiltAnalyzer = (*TiltAnalyzer)(nil)
