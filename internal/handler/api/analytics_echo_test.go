package api

import (
	"encoding/json"
	"net/http"
	"testing"

	models "TradeLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/metrics", "")
	require.Equal(t, http.StatusOK, env.Status)

	var m models.Metrics
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
}

func TestMetricsRejectsUnknownPairingMethod(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/metrics?pairing_method=mifo", "")
	require.Equal(t, http.StatusBadRequest, env.Status)

	var appErrs []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &appErrs))
	require.Len(t, appErrs, 1)
	assert.Equal(t, "ERR_PAIRING_METHOD", appErrs[0].Code)
}

func TestMetricsRejectsInvertedDateRange(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodGet,
		"/api/v1/analytics/metrics?start_date=2024-03-10&end_date=2024-03-01", "")
	require.Equal(t, http.StatusBadRequest, env.Status)

	var appErrs []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &appErrs))
	require.Len(t, appErrs, 1)
	assert.Equal(t, "ERR_DATE_RANGE", appErrs[0].Code)
}

func TestMetricsAcceptsLifo(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/metrics?pairing_method=LIFO", "")
	assert.Equal(t, http.StatusOK, env.Status)
}

func TestRecentTradesLimitValidation(t *testing.T) {
	f := newAPIFixture(t)

	// Above the contract maximum fails request validation before the
	// usecase runs.
	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/recent-trades?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestDistributionPercentBounds(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/distribution?concentration_percent=50", "")
	require.Equal(t, http.StatusBadRequest, env.Status)

	var appErrs []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &appErrs))
	require.Len(t, appErrs, 1)
	assert.Equal(t, "ERR_CONCENTRATION_PERCENT", appErrs[0].Code)
}

func TestDistributionDefaultsPercent(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/distribution", "")
	require.Equal(t, http.StatusOK, env.Status)

	var dc models.DistributionConcentration
	require.NoError(t, json.Unmarshal(env.Data, &dc))
	assert.NotEmpty(t, dc.Histogram)
}

func TestSymbolPnlEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/symbol-pnl", "")
	require.Equal(t, http.StatusOK, env.Status)

	var rows []models.SymbolPnl
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2)
	// Sorted by net pnl descending: AAPL's win leads TSLA's loss.
	assert.Equal(t, "AAPL", rows[0].Symbol)
	assert.Equal(t, "TSLA", rows[1].Symbol)
}

func TestDailyPnlEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/daily-pnl", "")
	require.Equal(t, http.StatusOK, env.Status)

	var days []models.DailyPnl
	require.NoError(t, json.Unmarshal(env.Data, &days))
	require.Len(t, days, 2)
	// Date descending.
	assert.True(t, days[0].Date > days[1].Date)
}

func TestEquityCurveEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/equity-curve", "")
	require.Equal(t, http.StatusOK, env.Status)

	var curve models.EquityCurve
	require.NoError(t, json.Unmarshal(env.Data, &curve))
	assert.Len(t, curve.Points, 2)
}

func TestOverviewEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/overview", "")
	require.Equal(t, http.StatusOK, env.Status)

	var out models.Overview
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotNil(t, out.Metrics)
	assert.Equal(t, 2, out.Metrics.TotalTrades)
	assert.NotEmpty(t, out.DailyPnl)
	assert.NotEmpty(t, out.RecentTrades)
	assert.NotEmpty(t, out.TopSymbols)
}

func TestTiltEndpointOnThinJournal(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/tilt", "")
	require.Equal(t, http.StatusOK, env.Status)

	var tilt models.TiltStats
	require.NoError(t, json.Unmarshal(env.Data, &tilt))
	assert.Equal(t, 2, tilt.TotalTrades)
}

func TestEvaluationEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/evaluation", "")
	assert.Equal(t, http.StatusOK, env.Status)
}

func TestOpenPositionsEmptyWhenFlat(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/open-positions", "")
	require.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, "null", string(env.Data))
}

func TestTopSymbolsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/top-symbols?limit=1", "")
	require.Equal(t, http.StatusOK, env.Status)

	var rows []models.TopSymbol
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	assert.Len(t, rows, 1)
}

func TestStrategyPerformanceUnassignedRow(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/analytics/strategy-performance", "")
	require.Equal(t, http.StatusOK, env.Status)

	var rows []models.StrategyPerformance
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Unassigned", rows[0].StrategyName)
	assert.Equal(t, 2, rows[0].TradeCount)
}
