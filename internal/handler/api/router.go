package api

import (
	xhttp "TradeLens/pkg/http"

	"github.com/labstack/echo/v4"
)

// Router bundles every API handler behind the single pkg/http Handler the
// server constructor accepts.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(analytics *AnalyticsEchoHandler, trades *TradesEchoHandler, strategies *StrategiesEchoHandler, system *SystemEchoHandler) *Router {
	return &Router{handlers: []xhttp.Handler{analytics, trades, strategies, system}}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
