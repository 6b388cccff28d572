package usecase

import (
	"context"
	"sync"
	"time"

	"TradeLens/internal/domain/models"
)

// overviewTimeout bounds the whole fan-out.
const overviewTimeout = 10 * time.Second

// Overview computes the dashboard landing widgets in one call. Everything
// derives from a single snapshot and pairing run, then the independent
// widgets are computed in parallel; a widget failure lands in Errors rather
// than failing the request.
func (uc *AnalyticsUseCase) Overview(ctx context.Context, req *models.OverviewRequest) (*models.Overview, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("overview")
		return nil, err
	}
	limit := clampLimit(req.Limit, defaultRecentLimit, maxSymbolsLimit)

	ctx, cancel := context.WithTimeout(ctx, overviewTimeout)
	defer cancel()

	execs, err := uc.store.ListFilled(ctx)
	if err != nil {
		uc.recorder.RecordOperationError("overview")
		return nil, err
	}
	res := uc.matcher.Pair(execs, w.method, w.from, w.to)
	uc.recorder.RecordPairsComputed(string(w.method), len(res.Pairs))

	var all []models.PairedTrade
	if w.from == nil && w.to == nil {
		all = res.Pairs
	} else {
		all = uc.matcher.Pair(execs, w.method, nil, nil).Pairs
	}

	names, err := uc.strategyNames(ctx)
	if err != nil {
		uc.recorder.RecordOperationError("overview")
		return nil, err
	}

	out := &models.Overview{
		OpenPositions: res.OpenPositions,
		Errors:        map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		m := uc.metrics.Compute(res.Pairs, all)
		ch <- item{"metrics", m, nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		windowed, err := uc.store.List(ctx, w.from, w.to)
		if err != nil {
			ch <- item{"daily_pnl", nil, err}
			return
		}
		ch <- item{"daily_pnl", uc.reporter.DailyPnl(windowed, res.Pairs), nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"recent_trades", uc.reporter.RecentTrades(res.Pairs, names, limit), nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"top_symbols", uc.reporter.TopSymbols(res.Pairs, limit), nil}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			out.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "metrics":
			v := it.val.(models.Metrics)
			out.Metrics = &v
		case "daily_pnl":
			out.DailyPnl = it.val.([]models.DailyPnl)
		case "recent_trades":
			out.RecentTrades = it.val.([]models.RecentTrade)
		case "top_symbols":
			out.TopSymbols = it.val.([]models.TopSymbol)
		}
	}

	if len(out.Errors) == 0 {
		out.Errors = nil
	}
	uc.observe("overview", start, nil)
	return out, nil
}
