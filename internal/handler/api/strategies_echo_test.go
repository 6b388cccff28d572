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

func TestStrategyCrudOverHttp(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/strategies",
		`{"name":"Breakout","description":"Opening range breakouts","color":"#22c55e"}`)
	require.Equal(t, http.StatusCreated, env.Status)
	var st models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "Breakout", st.Name)
	require.NotZero(t, st.ID)

	_, env = f.do(t, http.MethodGet, "/api/v1/strategies", "")
	require.Equal(t, http.StatusOK, env.Status)
	var list []models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)

	_, env = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/strategies/%d", st.ID),
		`{"name":"Momentum"}`)
	require.Equal(t, http.StatusOK, env.Status)
	var updated models.Strategy
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Momentum", updated.Name)

	rec, _ := f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/strategies/%d", st.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateStrategyRequiresName(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/strategies", `{}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestCreateStrategyDuplicateName(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/strategies", `{"name":"Breakout"}`)
	require.Equal(t, http.StatusCreated, env.Status)

	_, env = f.do(t, http.MethodPost, "/api/v1/strategies", `{"name":"Breakout"}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestUpdateStrategyMissing(t *testing.T) {
	f := newAPIFixture(t)

	_, env := f.do(t, http.MethodPut, "/api/v1/strategies/404", `{"name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestDeleteStrategyDetachesTrades(t *testing.T) {
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
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/strategies/%d", st.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, env = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trades/%d", exec.ID), "")
	require.Equal(t, http.StatusOK, env.Status)
	var got models.Execution
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Nil(t, got.StrategyID)
}
