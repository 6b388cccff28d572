package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	models "TradeLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeCrudOverHttp(t *testing.T) {
	f := newAPIFixture(t)

	// Create
	_, env := f.do(t, http.MethodPost, "/api/v1/trades",
		`{"symbol":"aapl","side":"buy","quantity":10,"price":187.5,"timestamp":"2024-03-04T09:30:00Z"}`)
	require.Equal(t, http.StatusCreated, env.Status)

	var created models.Execution
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "AAPL", created.Symbol)
	assert.Equal(t, "BUY", created.Side)
	require.NotZero(t, created.ID)

	// Read back
	_, env = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trades/%d", created.ID), "")
	require.Equal(t, http.StatusOK, env.Status)

	// Update
	_, env = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/trades/%d", created.ID),
		`{"symbol":"AAPL","side":"BUY","quantity":12,"price":188,"timestamp":"2024-03-04T09:30:00Z"}`)
	require.Equal(t, http.StatusOK, env.Status)
	var updated models.Execution
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.InDelta(t, 12.0, updated.Quantity, 1e-9)

	// Delete
	rec, _ := f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/trades/%d", created.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Gone
	_, env = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trades/%d", created.ID), "")
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestAddTradeRejectsMissingFields(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/trades", `{"symbol":"AAPL"}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestAddTradeRejectsBadSide(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/trades",
		`{"symbol":"AAPL","side":"HOLD","quantity":10,"price":187.5,"timestamp":"2024-03-04T09:30:00Z"}`)
	require.Equal(t, http.StatusBadRequest, env.Status)

	var appErrs []struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &appErrs))
	require.Len(t, appErrs, 1)
	assert.Equal(t, "ERR_VALIDATION", appErrs[0].Code)
	assert.Equal(t, "side", appErrs[0].Field)
}

func TestGetTradeRejectsNonNumericID(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/trades/abc", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestImportAndListTrades(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/trades", "")
	require.Equal(t, http.StatusOK, env.Status)

	var trades []models.Execution
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	require.Len(t, trades, 4)
	// Newest first.
	assert.Equal(t, "TSLA", trades[0].Symbol)
}

func TestImportReportsDuplicatesOnSecondRun(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	body := `{"csv_data":"symbol,side,quantity,price,timestamp\nAAPL,BUY,10,100,2024-03-04T09:30:00Z\n"}`
	_, env := f.do(t, http.MethodPost, "/api/v1/trades/import", body)
	require.Equal(t, http.StatusOK, env.Status)

	var res models.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Zero(t, res.Imported)
	assert.Equal(t, 1, res.SkippedDuplicates)
}

func TestImportRequiresCsvData(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/trades/import", `{}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestImportRateLimitKicksIn(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"csv_data":"symbol,side,quantity,price,timestamp\nAAPL,BUY,1,1,2024-03-04T09:30:00Z\n"}`
	var limited bool
	// Bucket holds 3; burst past it and the limiter must answer 429.
	for i := 0; i < 5; i++ {
		_, env := f.do(t, http.MethodPost, "/api/v1/trades/import", body)
		if env.Status == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected a 429 within five rapid imports")
}

func TestClearWipesJournal(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodDelete, "/api/v1/trades", "")
	require.Equal(t, http.StatusOK, env.Status)

	var res models.ClearResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.EqualValues(t, 4, res.Deleted)

	_, env = f.do(t, http.MethodGet, "/api/v1/trades", "")
	require.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, "null", string(env.Data))
}

func TestSymbolsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.importFixture(t)

	_, env := f.do(t, http.MethodGet, "/api/v1/trades/symbols", "")
	require.Equal(t, http.StatusOK, env.Status)

	var syms []string
	require.NoError(t, json.Unmarshal(env.Data, &syms))
	assert.Equal(t, []string{"AAPL", "TSLA"}, syms)
}

func TestAssignStrategyOverHttp(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/strategies", `{"name":"Breakout"}`)
	require.Equal(t, http.StatusCreated, env.Status)
	var st models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &st))

	_, env = f.do(t, http.MethodPost, "/api/v1/trades",
		`{"symbol":"AAPL","side":"BUY","quantity":10,"price":187.5,"timestamp":"2024-03-04T09:30:00Z"}`)
	require.Equal(t, http.StatusCreated, env.Status)
	var exec models.Execution
	require.NoError(t, json.Unmarshal(env.Data, &exec))

	rec, _ := f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/trades/%d/strategy", exec.ID),
		fmt.Sprintf(`{"strategy_id":%d}`, st.ID))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, env = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trades/%d", exec.ID), "")
	require.Equal(t, http.StatusOK, env.Status)
	var got models.Execution
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.NotNil(t, got.StrategyID)
	assert.Equal(t, st.ID, *got.StrategyID)

	// Null clears the assignment.
	rec, _ = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/trades/%d/strategy", exec.ID),
		`{"strategy_id":null}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
