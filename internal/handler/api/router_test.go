package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"TradeLens/internal/repository"
	"TradeLens/internal/services/analytics"
	"TradeLens/internal/services/csvimport"
	"TradeLens/internal/services/pairing"
	"TradeLens/internal/usecase"
	applogger "TradeLens/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope mirrors the APIResponse wire shape. Transport status is always
// 200 (or 204); the application status rides inside.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiFixture struct {
	echo  *echo.Echo
	store *repository.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store, err := repository.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	analyticsUC := usecase.NewAnalyticsUseCase(
		store, store,
		pairing.NewMatcher(),
		analytics.NewMetricsCalculator(),
		analytics.NewSegmenter(),
		analytics.NewDistribution(0),
		analytics.NewTiltAnalyzer(0, 0, 0),
		analytics.NewDashboardReporter(),
		nil, noRecorder{}, log,
	)
	tradesUC := usecase.NewTradesUseCase(store, csvimport.NewImporter(0), nil, nil, nil, nil, noRecorder{}, log)
	strategiesUC := usecase.NewStrategiesUseCase(store, nil, nil, log)

	router := NewRouter(
		NewAnalyticsEchoHandler(log, analyticsUC),
		NewTradesEchoHandler(log, tradesUC),
		NewStrategiesEchoHandler(log, strategiesUC),
		NewSystemEchoHandler(log, nil, map[string]HealthCheck{"store": store.Health}),
	)

	e := echo.New()
	router.RegisterRoutes(e)
	return &apiFixture{echo: e, store: store}
}

type noRecorder struct{}

func (noRecorder) RecordOperation(string, float64) {}
func (noRecorder) RecordOperationError(string)     {}
func (noRecorder) RecordImport(int, int)           {}
func (noRecorder) RecordPairsComputed(string, int) {}
func (noRecorder) RecordCacheHit(string)           {}
func (noRecorder) RecordCacheMiss(string)          {}
func (noRecorder) SetExecutionsStored(int)         {}

func (f *apiFixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	if rec.Code == http.StatusNoContent {
		return rec, &envelope{Status: http.StatusNoContent}
	}
	env := &envelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), env), "body: %s", rec.Body.String())
	return rec, env
}

func (f *apiFixture) importFixture(t *testing.T) {
	t.Helper()
	body := `{"csv_data":"symbol,side,quantity,price,timestamp\nAAPL,BUY,10,100,2024-03-04T09:30:00Z\nAAPL,SELL,10,105,2024-03-04T10:30:00Z\nTSLA,BUY,5,200,2024-03-05T09:30:00Z\nTSLA,SELL,5,190,2024-03-05T10:30:00Z\n"}`
	_, env := f.do(t, http.MethodPost, "/api/v1/trades/import", body)
	require.Equal(t, http.StatusOK, env.Status)
}

func TestHealthzReportsStoreCheck(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "ok", body.Checks["store"])
}

func TestHealthzDegradesOnFailedCheck(t *testing.T) {
	f := newAPIFixture(t)
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	sys := NewSystemEchoHandler(log, nil, map[string]HealthCheck{
		"store": f.store.Health,
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	e := echo.New()
	sys.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	env := &envelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), env))
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "ok", body.Checks["store"])
	assert.Contains(t, body.Checks["redis"], "connection refused")
}

func TestRouterLeavesMetricsToServer(t *testing.T) {
	// The prometheus scrape route is mounted by the server constructor, not
	// the API router; the router must leave /metrics free.
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
