package service

import (
	"time"

	"TradeLens/internal/domain/models"
)

// MatchResult is a pairing run's output: closed round trips with exits in
// range, plus the netted residual positions still open.
type MatchResult struct {
	Pairs         []models.PairedTrade
	OpenPositions []models.OpenPosition
}

// LotMatcher turns an execution snapshot into round-trip pairs under a
// pairing method. The date window filters pair EXITS only; entries may
// predate it.
type LotMatcher interface {
	Pair(execs []models.Execution, method models.PairingMethod, from, to *time.Time) MatchResult
}

// MetricsAnalyzer computes the portfolio scalar battery. filtered is the
// date-windowed pair set; all is the unfiltered set backing the strategy_*
// fields.
type MetricsAnalyzer interface {
	Compute(filtered, all []models.PairedTrade) models.Metrics
}

// SegmentationAnalyzer buckets pairs by weekday, day-of-month, hour, symbol
// and strategy. strategyNames resolves strategy ids to display names.
type SegmentationAnalyzer interface {
	Evaluate(pairs []models.PairedTrade, strategyNames map[int64]string) models.EvaluationMetrics
}

// DistributionAnalyzer builds the net-pnl histogram and the concentration /
// stability figures for the given top-percent parameter.
type DistributionAnalyzer interface {
	Analyze(pairs []models.PairedTrade, percent float64) models.DistributionConcentration
}

// TiltAnalyzer computes conditional streak statistics over the chronological
// pair sequence.
type TiltAnalyzer interface {
	Assess(pairs []models.PairedTrade) models.TiltStats
}

// Reporter derives the dashboard series and rankings from one pairing run.
type Reporter interface {
	DailyPnl(execs []models.Execution, pairs []models.PairedTrade) []models.DailyPnl
	EquityCurve(pairs []models.PairedTrade) models.EquityCurve
	SymbolPnl(pairs []models.PairedTrade, open []models.OpenPosition) []models.SymbolPnl
	StrategyPerformance(pairs []models.PairedTrade, strategyNames map[int64]string) []models.StrategyPerformance
	RecentTrades(pairs []models.PairedTrade, strategyNames map[int64]string, limit int) []models.RecentTrade
	TopSymbols(pairs []models.PairedTrade, limit int) []models.TopSymbol
}
