package analytics

import (
	"sort"
	"strconv"

	"TradeLens/internal/domain/models"
	domsvc "TradeLens/internal/domain/service"
)

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Segmenter buckets closed pairs along the evaluation axes. Bucket keys come
// from the pair EXIT timestamp; entries may fall on a different day.
type Segmenter struct{}

func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Evaluate produces the full breakdown. Weekday, day-of-month and hour axes
// are zero-filled so charts always receive 7/31/24 buckets; symbol and
// strategy groups carry only non-empty buckets, best total pnl first.
func (s *Segmenter) Evaluate(pairs []models.PairedTrade, strategyNames map[int64]string) models.EvaluationMetrics {
	byWeekday := make(map[int][]*models.PairedTrade)
	byDay := make(map[int][]*models.PairedTrade)
	byHour := make(map[int][]*models.PairedTrade)
	bySymbol := make(map[string][]*models.PairedTrade)
	byStrategy := make(map[int64][]*models.PairedTrade)
	unassigned := []*models.PairedTrade{}

	for i := range pairs {
		p := &pairs[i]
		exit := p.ExitTimestamp

		// Go counts Sunday=0; shift so Monday=0 matches trading-week order.
		wd := (int(exit.Weekday()) + 6) % 7
		byWeekday[wd] = append(byWeekday[wd], p)
		byDay[exit.Day()] = append(byDay[exit.Day()], p)
		byHour[exit.Hour()] = append(byHour[exit.Hour()], p)
		bySymbol[p.Underlying] = append(bySymbol[p.Underlying], p)

		if p.StrategyID != nil {
			byStrategy[*p.StrategyID] = append(byStrategy[*p.StrategyID], p)
		} else {
			unassigned = append(unassigned, p)
		}
	}

	out := models.EvaluationMetrics{
		ByWeekday:    make([]models.SegmentStats, 0, 7),
		ByDayOfMonth: make([]models.SegmentStats, 0, 31),
		ByHour:       make([]models.SegmentStats, 0, 24),
	}

	for wd := 0; wd < 7; wd++ {
		out.ByWeekday = append(out.ByWeekday, segmentStats(weekdayNames[wd], byWeekday[wd]))
	}
	for day := 1; day <= 31; day++ {
		out.ByDayOfMonth = append(out.ByDayOfMonth, segmentStats(strconv.Itoa(day), byDay[day]))
	}
	for hour := 0; hour < 24; hour++ {
		out.ByHour = append(out.ByHour, segmentStats(hourLabel(hour), byHour[hour]))
	}

	for symbol, group := range bySymbol {
		out.BySymbol = append(out.BySymbol, segmentStats(symbol, group))
	}
	sortSegmentsByPnl(out.BySymbol)

	for id, group := range byStrategy {
		name, ok := strategyNames[id]
		if !ok {
			name = "Unknown"
		}
		out.ByStrategy = append(out.ByStrategy, segmentStats(name, group))
	}
	if len(unassigned) > 0 {
		out.ByStrategy = append(out.ByStrategy, segmentStats("Unassigned", unassigned))
	}
	sortSegmentsByPnl(out.ByStrategy)

	return out
}

func hourLabel(hour int) string {
	h := strconv.Itoa(hour)
	if hour < 10 {
		h = "0" + h
	}
	return h + ":00-" + h + ":59"
}

// segmentStats aggregates one bucket. average_loss stays negative; payoff
// uses its magnitude; profit factor shares the portfolio sentinel.
func segmentStats(label string, group []*models.PairedTrade) models.SegmentStats {
	st := models.SegmentStats{Label: label, TradeCount: len(group)}
	if len(group) == 0 {
		return st
	}

	var sumWins, sumLosses float64
	var wins, losses int
	for _, p := range group {
		st.TotalPnl += p.NetPnl
		switch {
		case p.NetPnl > 0:
			wins++
			sumWins += p.NetPnl
			st.GrossProfit += p.NetPnl
		case p.NetPnl < 0:
			losses++
			sumLosses += p.NetPnl
			st.GrossLoss += -p.NetPnl
		}
	}

	st.WinRate = float64(wins) / float64(len(group))
	st.AveragePnl = st.TotalPnl / float64(len(group))
	if wins > 0 {
		st.AverageWin = sumWins / float64(wins)
	}
	if losses > 0 {
		st.AverageLoss = sumLosses / float64(losses)
	}
	if st.AverageLoss != 0 {
		st.PayoffRatio = st.AverageWin / -st.AverageLoss
	}
	st.ProfitFactor = profitFactor(st.GrossProfit, st.GrossLoss)

	return st
}

func sortSegmentsByPnl(segments []models.SegmentStats) {
	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].TotalPnl == segments[j].TotalPnl {
			return segments[i].Label < segments[j].Label
		}
		return segments[i].TotalPnl > segments[j].TotalPnl
	})
}

var _ domsvc.SegmentationAnalyzer = (*Segmenter)(nil)
