package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"
	domsvc "TradeLens/internal/domain/service"
	pkgcache "TradeLens/pkg/cache"
	xhttp "TradeLens/pkg/http"
	applogger "TradeLens/pkg/logger"
	"TradeLens/pkg/util"
)

const (
	analyticsKeyPrefix = "tradelens:analytics"
	defaultCacheTTL    = 5 * time.Minute

	defaultRecentLimit  = 5
	maxRecentLimit      = 100
	defaultSymbolsLimit = 5
	maxSymbolsLimit     = 50

	defaultConcentrationMin = 5.0
	defaultConcentrationMax = 30.0
)

// AnalyticsUseCase derives every read-side payload from one journal
// snapshot: load filled executions, pair them, hand the pairs to the pure
// analyzers. Results are cached keyed by store version, so a write
// invalidates by making old keys unreachable.
type AnalyticsUseCase struct {
	store      domrepo.ExecutionStore
	strategies domrepo.StrategyStore
	matcher    domsvc.LotMatcher
	metrics    domsvc.MetricsAnalyzer
	segmenter  domsvc.SegmentationAnalyzer
	dist       domsvc.DistributionAnalyzer
	tilt       domsvc.TiltAnalyzer
	reporter   domsvc.Reporter
	cache      pkgcache.Service
	recorder   domrepo.Metrics
	logger     *applogger.Logger
	cacheTTL   time.Duration
	concMin    float64
	concMax    float64
	defMethod  models.PairingMethod
}

func NewAnalyticsUseCase(
	store domrepo.ExecutionStore,
	strategies domrepo.StrategyStore,
	matcher domsvc.LotMatcher,
	metrics domsvc.MetricsAnalyzer,
	segmenter domsvc.SegmentationAnalyzer,
	dist domsvc.DistributionAnalyzer,
	tilt domsvc.TiltAnalyzer,
	reporter domsvc.Reporter,
	cache pkgcache.Service,
	recorder domrepo.Metrics,
	logger *applogger.Logger,
) *AnalyticsUseCase {
	return &AnalyticsUseCase{
		store:      store,
		strategies: strategies,
		matcher:    matcher,
		metrics:    metrics,
		segmenter:  segmenter,
		dist:       dist,
		tilt:       tilt,
		reporter:   reporter,
		cache:      cache,
		recorder:   recorder,
		logger:     logger,
		cacheTTL:   defaultCacheTTL,
		concMin:    defaultConcentrationMin,
		concMax:    defaultConcentrationMax,
		defMethod:  models.PairingFIFO,
	}
}

// SetCacheTTL overrides how long computed payloads stay cached. Zero or
// negative values are ignored.
func (uc *AnalyticsUseCase) SetCacheTTL(d time.Duration) {
	if d > 0 {
		uc.cacheTTL = d
	}
}

// SetConcentrationBounds overrides the accepted top-percent range for the
// distribution view.
func (uc *AnalyticsUseCase) SetConcentrationBounds(min, max float64) {
	if min > 0 && max > min {
		uc.concMin, uc.concMax = min, max
	}
}

// SetDefaultPairing overrides which pairing method an empty request value
// resolves to. Invalid values are ignored.
func (uc *AnalyticsUseCase) SetDefaultPairing(method string) {
	if m, err := models.ParsePairingMethod(method); err == nil {
		uc.defMethod = m
	}
}

// window is a normalized request scope: pairing method plus optional
// exit-date bounds.
type window struct {
	method models.PairingMethod
	from   *time.Time
	to     *time.Time
}

func (uc *AnalyticsUseCase) resolveWindow(methodRaw, startRaw, endRaw string) (*window, error) {
	if strings.TrimSpace(methodRaw) == "" {
		methodRaw = string(uc.defMethod)
	}
	method, err := models.ParsePairingMethod(methodRaw)
	if err != nil {
		return nil, xhttp.NewAppError("ERR_PAIRING_METHOD", "pairing_method", err.Error(), http.StatusBadRequest).
			WithParam("pairing_method", methodRaw)
	}
	from, to, err := util.ParseDateRange(startRaw, endRaw)
	if err != nil {
		return nil, xhttp.NewAppError("ERR_DATE_RANGE", "start_date", err.Error(), http.StatusBadRequest).
			WithParam("start_date", startRaw).
			WithParam("end_date", endRaw)
	}
	return &window{method: method, from: from, to: to}, nil
}

func boundKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (uc *AnalyticsUseCase) cacheKey(scope string, version uint64, w *window, extra ...interface{}) string {
	params := append([]interface{}{version, string(w.method), boundKey(w.from), boundKey(w.to)}, extra...)
	return pkgcache.GenerateKeyWithParams(analyticsKeyPrefix+":"+scope, params...)
}

// cachedCompute is the cache-aside path every read operation goes through.
// A nil cache service degrades to compute-always.
func cachedCompute[T any](ctx context.Context, uc *AnalyticsUseCase, scope, key string, compute func() (T, error)) (T, error) {
	var out T
	if uc.cache != nil {
		err := uc.cache.Get(ctx, key, &out)
		if err == nil {
			uc.recorder.RecordCacheHit(scope)
			return out, nil
		}
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			uc.logger.Warn("analytics cache read failed",
				applogger.String("key", key), applogger.Error(err))
		}
		uc.recorder.RecordCacheMiss(scope)
	}

	out, err := compute()
	if err != nil {
		return out, err
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, out, uc.cacheTTL); err != nil {
			uc.logger.Warn("analytics cache write failed",
				applogger.String("key", key), applogger.Error(err))
		}
	}
	return out, nil
}

func (uc *AnalyticsUseCase) observe(op string, start time.Time, err error) {
	uc.recorder.RecordOperation(op, time.Since(start).Seconds())
	if err != nil {
		uc.recorder.RecordOperationError(op)
	}
}

// match loads the filled snapshot and runs one pairing pass. The version
// must be read before the snapshot: a write between the two bumps it, so a
// value cached under the older version is never staler than its key claims.
func (uc *AnalyticsUseCase) match(ctx context.Context, w *window) (domsvc.MatchResult, error) {
	execs, err := uc.store.ListFilled(ctx)
	if err != nil {
		return domsvc.MatchResult{}, err
	}
	res := uc.matcher.Pair(execs, w.method, w.from, w.to)
	uc.recorder.RecordPairsComputed(string(w.method), len(res.Pairs))
	return res, nil
}

// matchSets returns the window-filtered pairs and, when a window is set, the
// unfiltered set too. The unfiltered set backs the strategy aggregate fields
// of Metrics.
func (uc *AnalyticsUseCase) matchSets(ctx context.Context, w *window) (filtered, all []models.PairedTrade, err error) {
	execs, err := uc.store.ListFilled(ctx)
	if err != nil {
		return nil, nil, err
	}
	res := uc.matcher.Pair(execs, w.method, w.from, w.to)
	uc.recorder.RecordPairsComputed(string(w.method), len(res.Pairs))
	if w.from == nil && w.to == nil {
		return res.Pairs, res.Pairs, nil
	}
	full := uc.matcher.Pair(execs, w.method, nil, nil)
	return res.Pairs, full.Pairs, nil
}

func (uc *AnalyticsUseCase) strategyNames(ctx context.Context) (map[int64]string, error) {
	list, err := uc.strategies.ListStrategies(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(list))
	for _, st := range list {
		names[st.ID] = st.Name
	}
	return names, nil
}

// ComputeMetrics returns the portfolio scalar battery for the window.
func (uc *AnalyticsUseCase) ComputeMetrics(ctx context.Context, req *models.AnalyticsRangeRequest) (*models.Metrics, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("metrics")
		return nil, err
	}
	key := uc.cacheKey("metrics", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "metrics", key, func() (*models.Metrics, error) {
		filtered, all, err := uc.matchSets(ctx, w)
		if err != nil {
			return nil, err
		}
		m := uc.metrics.Compute(filtered, all)
		return &m, nil
	})
	uc.observe("metrics", start, err)
	return out, err
}

// ComputeSymbolPnl groups realized and open exposure per underlying.
func (uc *AnalyticsUseCase) ComputeSymbolPnl(ctx context.Context, req *models.AnalyticsRangeRequest) ([]models.SymbolPnl, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("symbol_pnl")
		return nil, err
	}
	key := uc.cacheKey("symbol_pnl", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "symbol_pnl", key, func() ([]models.SymbolPnl, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		return uc.reporter.SymbolPnl(res.Pairs, res.OpenPositions), nil
	})
	uc.observe("symbol_pnl", start, err)
	return out, err
}

// ComputeStrategyPerformance attributes round trips to strategies. The
// operation takes no pairing parameter; attribution always pairs FIFO.
func (uc *AnalyticsUseCase) ComputeStrategyPerformance(ctx context.Context, req *models.StrategyPerformanceRequest) ([]models.StrategyPerformance, error) {
	start := time.Now()
	w, err := uc.resolveWindow("", req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("strategy_performance")
		return nil, err
	}
	key := uc.cacheKey("strategy_performance", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "strategy_performance", key, func() ([]models.StrategyPerformance, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		names, err := uc.strategyNames(ctx)
		if err != nil {
			return nil, err
		}
		return uc.reporter.StrategyPerformance(res.Pairs, names), nil
	})
	uc.observe("strategy_performance", start, err)
	return out, err
}

// ComputeRecentTrades returns the newest closed round trips.
func (uc *AnalyticsUseCase) ComputeRecentTrades(ctx context.Context, req *models.RecentTradesRequest) ([]models.RecentTrade, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("recent_trades")
		return nil, err
	}
	limit := clampLimit(req.Limit, defaultRecentLimit, maxRecentLimit)
	key := uc.cacheKey("recent_trades", uc.store.Version(), w, limit)
	out, err := cachedCompute(ctx, uc, "recent_trades", key, func() ([]models.RecentTrade, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		names, err := uc.strategyNames(ctx)
		if err != nil {
			return nil, err
		}
		return uc.reporter.RecentTrades(res.Pairs, names, limit), nil
	})
	uc.observe("recent_trades", start, err)
	return out, err
}

// ComputeEvaluationMetrics buckets performance by weekday, day-of-month,
// hour, symbol and strategy.
func (uc *AnalyticsUseCase) ComputeEvaluationMetrics(ctx context.Context, req *models.AnalyticsRangeRequest) (*models.EvaluationMetrics, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("evaluation")
		return nil, err
	}
	key := uc.cacheKey("evaluation", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "evaluation", key, func() (*models.EvaluationMetrics, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		names, err := uc.strategyNames(ctx)
		if err != nil {
			return nil, err
		}
		ev := uc.segmenter.Evaluate(res.Pairs, names)
		return &ev, nil
	})
	uc.observe("evaluation", start, err)
	return out, err
}

// ComputeDistributionConcentration builds the pnl histogram and the
// top-percent concentration view.
func (uc *AnalyticsUseCase) ComputeDistributionConcentration(ctx context.Context, req *models.DistributionRequest) (*models.DistributionConcentration, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("distribution")
		return nil, err
	}
	percent := req.ConcentrationPercent
	if percent < uc.concMin || percent > uc.concMax {
		uc.recorder.RecordOperationError("distribution")
		return nil, xhttp.NewAppError("ERR_CONCENTRATION_PERCENT", "concentration_percent",
			fmt.Sprintf("concentration_percent must be between %g and %g", uc.concMin, uc.concMax),
			http.StatusBadRequest).
			WithParam("concentration_percent", percent)
	}
	key := uc.cacheKey("distribution", uc.store.Version(), w, percent)
	out, err := cachedCompute(ctx, uc, "distribution", key, func() (*models.DistributionConcentration, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		d := uc.dist.Analyze(res.Pairs, percent)
		return &d, nil
	})
	uc.observe("distribution", start, err)
	return out, err
}

// ComputeTiltMetric measures post-loss decision decay.
func (uc *AnalyticsUseCase) ComputeTiltMetric(ctx context.Context, req *models.AnalyticsRangeRequest) (*models.TiltStats, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("tilt")
		return nil, err
	}
	key := uc.cacheKey("tilt", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "tilt", key, func() (*models.TiltStats, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		t := uc.tilt.Assess(res.Pairs)
		return &t, nil
	})
	uc.observe("tilt", start, err)
	return out, err
}

// PairedTradesByStrategy filters one pairing run down to a strategy.
// StrategyID zero selects pairs with no strategy tag.
func (uc *AnalyticsUseCase) PairedTradesByStrategy(ctx context.Context, req *models.PairedTradesByStrategyRequest) ([]models.PairedTrade, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("paired_trades")
		return nil, err
	}
	key := uc.cacheKey("paired_trades", uc.store.Version(), w, req.StrategyID)
	out, err := cachedCompute(ctx, uc, "paired_trades", key, func() ([]models.PairedTrade, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		selected := make([]models.PairedTrade, 0, len(res.Pairs))
		for _, p := range res.Pairs {
			if req.StrategyID == 0 {
				if p.StrategyID == nil {
					selected = append(selected, p)
				}
				continue
			}
			if p.StrategyID != nil && *p.StrategyID == req.StrategyID {
				selected = append(selected, p)
			}
		}
		return selected, nil
	})
	uc.observe("paired_trades", start, err)
	return out, err
}

// DailyPnl returns the per-day realized pnl and activity series.
func (uc *AnalyticsUseCase) DailyPnl(ctx context.Context, req *models.AnalyticsRangeRequest) ([]models.DailyPnl, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("daily_pnl")
		return nil, err
	}
	key := uc.cacheKey("daily_pnl", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "daily_pnl", key, func() ([]models.DailyPnl, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		// Execution-day counts respect the same window as the pairs.
		execs, err := uc.store.List(ctx, w.from, w.to)
		if err != nil {
			return nil, err
		}
		return uc.reporter.DailyPnl(execs, res.Pairs), nil
	})
	uc.observe("daily_pnl", start, err)
	return out, err
}

// EquityCurve returns the cumulative daily pnl series.
func (uc *AnalyticsUseCase) EquityCurve(ctx context.Context, req *models.AnalyticsRangeRequest) (*models.EquityCurve, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("equity_curve")
		return nil, err
	}
	key := uc.cacheKey("equity_curve", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "equity_curve", key, func() (*models.EquityCurve, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		curve := uc.reporter.EquityCurve(res.Pairs)
		return &curve, nil
	})
	uc.observe("equity_curve", start, err)
	return out, err
}

// OpenPositions returns the unmatched residual lots after pairing. The
// pairing method matters: which lots remain open depends on consumption
// order, even though net quantities agree.
func (uc *AnalyticsUseCase) OpenPositions(ctx context.Context, req *models.AnalyticsRangeRequest) ([]models.OpenPosition, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("open_positions")
		return nil, err
	}
	key := uc.cacheKey("open_positions", uc.store.Version(), w)
	out, err := cachedCompute(ctx, uc, "open_positions", key, func() ([]models.OpenPosition, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		return res.OpenPositions, nil
	})
	uc.observe("open_positions", start, err)
	return out, err
}

// TopSymbols ranks underlyings by absolute realized pnl.
func (uc *AnalyticsUseCase) TopSymbols(ctx context.Context, req *models.TopSymbolsRequest) ([]models.TopSymbol, error) {
	start := time.Now()
	w, err := uc.resolveWindow(req.PairingMethod, req.StartDate, req.EndDate)
	if err != nil {
		uc.recorder.RecordOperationError("top_symbols")
		return nil, err
	}
	limit := clampLimit(req.Limit, defaultSymbolsLimit, maxSymbolsLimit)
	key := uc.cacheKey("top_symbols", uc.store.Version(), w, limit)
	out, err := cachedCompute(ctx, uc, "top_symbols", key, func() ([]models.TopSymbol, error) {
		res, err := uc.match(ctx, w)
		if err != nil {
			return nil, err
		}
		return uc.reporter.TopSymbols(res.Pairs, limit), nil
	})
	uc.observe("top_symbols", start, err)
	return out, err
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
