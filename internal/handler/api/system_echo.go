package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	xhttp "TradeLens/pkg/http"
	xlogger "TradeLens/pkg/logger"
	"TradeLens/pkg/ws"

	"github.com/labstack/echo/v4"
)

const healthTimeout = 2 * time.Second

// HealthCheck pings one infrastructure dependency.
type HealthCheck func(ctx context.Context) error

// SystemEchoHandler serves liveness and the journal event WebSocket.
type SystemEchoHandler struct {
	logger *xlogger.Logger
	hub    *ws.Hub
	checks map[string]HealthCheck
}

func NewSystemEchoHandler(logger *xlogger.Logger, hub *ws.Hub, checks map[string]HealthCheck) *SystemEchoHandler {
	return &SystemEchoHandler{logger: logger, hub: hub, checks: checks}
}

func (h *SystemEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	if h.hub != nil {
		e.GET("/ws/journal", h.WebSocket)
	}
}

// Health pings every registered dependency. Any failure degrades the
// response to 503 but the remaining checks still run and report.
func (h *SystemEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed",
				xlogger.String("check", name), xlogger.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{"checks": checks}
	if h.hub != nil {
		body["ws_clients"] = h.hub.ClientCount()
	}
	return xhttp.DataResponse(c, status, body)
}

func (h *SystemEchoHandler) WebSocket(c echo.Context) error {
	return h.hub.Serve(c.Response(), c.Request())
}
