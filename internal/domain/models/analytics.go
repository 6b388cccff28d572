package models

// ProfitFactorCap is reported when there are winners and no losers. Keeps the
// JSON payload free of Inf while staying unmistakably off-scale.
const ProfitFactorCap = 9999.0

// Metrics is the portfolio-level scalar battery over a date-filtered pair set.
// All ratios are zero-division guarded to 0; win_rate is a fraction in [0,1];
// average_loss is kept negative. The strategy_* fields aggregate the full
// unfiltered pair set restricted to strategy-tagged pairs.
type Metrics struct {
	TotalTrades           int     `json:"total_trades"`
	WinningTrades         int     `json:"winning_trades"`
	LosingTrades          int     `json:"losing_trades"`
	WinRate               float64 `json:"win_rate"`
	AverageProfit         float64 `json:"average_profit"`
	AverageLoss           float64 `json:"average_loss"`
	LargestWin            float64 `json:"largest_win"`
	LargestLoss           float64 `json:"largest_loss"`
	TotalVolume           float64 `json:"total_volume"`
	ProfitFactor          float64 `json:"profit_factor"`
	Expectancy            float64 `json:"expectancy"`
	AverageTrade          float64 `json:"average_trade"`
	TotalFees             float64 `json:"total_fees"`
	NetProfit             float64 `json:"net_profit"`
	MaxDrawdown           float64 `json:"max_drawdown"`
	SharpeRatio           float64 `json:"sharpe_ratio"`
	RiskReward            float64 `json:"risk_reward_ratio"`
	TradesPerDay          float64 `json:"trades_per_day"`
	BestDay               float64 `json:"best_day"`
	WorstDay              float64 `json:"worst_day"`
	ConsecutiveWins       int     `json:"consecutive_wins"`
	ConsecutiveLosses     int     `json:"consecutive_losses"`
	CurrentWinStreak      int     `json:"current_win_streak"`
	CurrentLossStreak     int     `json:"current_loss_streak"`
	AverageHoldingSeconds float64 `json:"average_holding_seconds"`
	StrategyTrades        int     `json:"strategy_trades"`
	StrategyVolume        float64 `json:"strategy_volume"`
	StrategyPnl           float64 `json:"strategy_pnl"`
}

// SymbolPnl groups closed pairs and open residuals per underlying symbol.
type SymbolPnl struct {
	Symbol          string  `json:"symbol"`
	ClosedPositions int     `json:"closed_positions"`
	OpenPositionQty float64 `json:"open_position_qty"`
	TotalGrossPnl   float64 `json:"total_gross_pnl"`
	TotalNetPnl     float64 `json:"total_net_pnl"`
	TotalFees       float64 `json:"total_fees"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
}

// StrategyPerformance attributes pairs to strategies. StrategyID nil means
// pairs with no strategy tag (reported under the "Unassigned" row).
type StrategyPerformance struct {
	StrategyID   *int64  `json:"strategy_id"`
	StrategyName string  `json:"strategy_name"`
	TradeCount   int     `json:"trade_count"`
	TotalVolume  float64 `json:"total_volume"`
	EstimatedPnl float64 `json:"estimated_pnl"`
}

// RecentTrade is a PairedTrade with the display fields dashboards want.
type RecentTrade struct {
	Symbol         string  `json:"symbol"`
	Direction      string  `json:"direction"`
	Quantity       float64 `json:"quantity"`
	EntryPrice     float64 `json:"entry_price"`
	ExitPrice      float64 `json:"exit_price"`
	EntryTimestamp string  `json:"entry_timestamp"`
	ExitTimestamp  string  `json:"exit_timestamp"`
	GrossPnl       float64 `json:"gross_pnl"`
	NetPnl         float64 `json:"net_pnl"`
	PnlPercent     float64 `json:"pnl_percent"`
	HoldingSeconds float64 `json:"holding_seconds"`
	StrategyID     *int64  `json:"strategy_id,omitempty"`
	StrategyName   string  `json:"strategy_name,omitempty"`
}

// SegmentStats is one bucket of the evaluation breakdown. Ratios are guarded
// to 0; average_loss stays negative so payoff_ratio uses its magnitude.
type SegmentStats struct {
	Label        string  `json:"label"`
	TradeCount   int     `json:"trade_count"`
	WinRate      float64 `json:"win_rate"`
	TotalPnl     float64 `json:"total_pnl"`
	AveragePnl   float64 `json:"average_pnl"`
	AverageWin   float64 `json:"average_win"`
	AverageLoss  float64 `json:"average_loss"`
	PayoffRatio  float64 `json:"payoff_ratio"`
	ProfitFactor float64 `json:"profit_factor"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
}

// EvaluationMetrics carries complete axes: 7 weekdays (Monday first), 31
// days, 24 hours. Zero-filled buckets are included so charts render full
// scales. Symbol and strategy groups hold only non-empty buckets, best first.
type EvaluationMetrics struct {
	ByWeekday    []SegmentStats `json:"by_weekday"`
	ByDayOfMonth []SegmentStats `json:"by_day_of_month"`
	ByHour       []SegmentStats `json:"by_hour"`
	BySymbol     []SegmentStats `json:"by_symbol"`
	ByStrategy   []SegmentStats `json:"by_strategy"`
}

// HistogramBin is one equal-width net-pnl bucket.
type HistogramBin struct {
	BinStart float64 `json:"bin_start"`
	BinEnd   float64 `json:"bin_end"`
	Count    int     `json:"count"`
	TotalPnl float64 `json:"total_pnl"`
}

// DistributionConcentration bundles the net-pnl histogram, concentration
// shares for the requested top percent, and the stability score.
type DistributionConcentration struct {
	Histogram            []HistogramBin `json:"histogram"`
	MeanReturn           float64        `json:"mean_return"`
	MedianReturn         float64        `json:"median_return"`
	ConcentrationPercent float64        `json:"concentration_percent"`
	TopWinnerCount       int            `json:"top_winner_count"`
	TopLoserCount        int            `json:"top_loser_count"`
	ProfitShareTop       float64        `json:"profit_share_top"`
	LossShareTop         float64        `json:"loss_share_top"`
	StabilityScore       float64        `json:"stability_score"`
	Insights             []string       `json:"insights"`
}

// StreakStats is the conditional outcome after at least StreakLength
// consecutive losses. SampleSize below the configured minimum means the
// figure is reported but not trusted for recommendations.
type StreakStats struct {
	StreakLength int     `json:"streak_length"`
	SampleSize   int     `json:"sample_size"`
	WinRate      float64 `json:"win_rate"`
	AvgPnl       float64 `json:"avg_pnl"`
}

// TiltStats measures decision decay after losses.
type TiltStats struct {
	TotalTrades       int           `json:"total_trades"`
	BaselineWinRate   float64       `json:"baseline_win_rate"`
	WinRateAfterLoss  float64       `json:"win_rate_after_loss"`
	WinRateAfterWin   float64       `json:"win_rate_after_win"`
	AvgLossNormally   float64       `json:"avg_loss_normally"`
	AvgLossAfterLoss  float64       `json:"avg_loss_after_loss"`
	ProbLossAfterLoss float64       `json:"prob_loss_after_loss"`
	StreakStats       []StreakStats `json:"streak_stats"`
	TiltScore         float64       `json:"tilt_score"`
	TiltCategory      string        `json:"tilt_category"`
	RecommendedStreak int           `json:"recommended_streak"`
	CoachingLines     []string      `json:"coaching_lines"`
}

// DailyPnl is realized net pnl per calendar day (pair exit date) with the
// execution count for that day.
type DailyPnl struct {
	Date       string  `json:"date"`
	ProfitLoss float64 `json:"profit_loss"`
	TradeCount int     `json:"trade_count"`
}

// EquityPoint is one day on the cumulative curve.
type EquityPoint struct {
	Date          string  `json:"date"`
	DailyPnl      float64 `json:"daily_pnl"`
	CumulativePnl float64 `json:"cumulative_pnl"`
	Drawdown      float64 `json:"drawdown"`
}

// EquityCurve is the daily cumulative net-pnl series with its worst
// peak-to-trough window.
type EquityCurve struct {
	Points           []EquityPoint `json:"points"`
	FinalPnl         float64       `json:"final_pnl"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	MaxDrawdownStart string        `json:"max_drawdown_start,omitempty"`
	MaxDrawdownEnd   string        `json:"max_drawdown_end,omitempty"`
}

// TopSymbol ranks underlyings by absolute realized pnl.
type TopSymbol struct {
	Symbol     string  `json:"symbol"`
	TradeCount int     `json:"trade_count"`
	NetPnl     float64 `json:"net_pnl"`
}

// Overview bundles the dashboard's landing widgets computed over one
// snapshot. Partial failures land in Errors instead of failing the request.
type Overview struct {
	Metrics       *Metrics          `json:"metrics,omitempty"`
	DailyPnl      []DailyPnl        `json:"daily_pnl,omitempty"`
	RecentTrades  []RecentTrade     `json:"recent_trades,omitempty"`
	TopSymbols    []TopSymbol       `json:"top_symbols,omitempty"`
	OpenPositions []OpenPosition    `json:"open_positions,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
}
