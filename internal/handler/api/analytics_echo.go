package api

import (
	models "TradeLens/internal/domain/models"
	"TradeLens/internal/usecase"
	xhttp "TradeLens/pkg/http"
	xlogger "TradeLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalyticsEchoHandler exposes the journal analytics battery. Every endpoint
// is a GET over the same request shape: pairing method plus optional date
// range, sometimes a limit or percent on top.
type AnalyticsEchoHandler struct {
	logger    *xlogger.Logger
	analytics *usecase.AnalyticsUseCase
}

func NewAnalyticsEchoHandler(logger *xlogger.Logger, analytics *usecase.AnalyticsUseCase) *AnalyticsEchoHandler {
	return &AnalyticsEchoHandler{logger: logger, analytics: analytics}
}

func (h *AnalyticsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/analytics")
	g.GET("/metrics", h.Metrics)
	g.GET("/symbol-pnl", h.SymbolPnl)
	g.GET("/strategy-performance", h.StrategyPerformance)
	g.GET("/recent-trades", h.RecentTrades)
	g.GET("/evaluation", h.Evaluation)
	g.GET("/distribution", h.Distribution)
	g.GET("/tilt", h.Tilt)
	g.GET("/paired-trades", h.PairedTrades)
	g.GET("/daily-pnl", h.DailyPnl)
	g.GET("/equity-curve", h.EquityCurve)
	g.GET("/open-positions", h.OpenPositions)
	g.GET("/top-symbols", h.TopSymbols)
	g.GET("/overview", h.Overview)
}

func (h *AnalyticsEchoHandler) Metrics(c echo.Context) error {
	req := &models.AnalyticsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.ComputeMetrics(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("metrics usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) SymbolPnl(c echo.Context) error {
	req := &models.AnalyticsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.ComputeSymbolPnl(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("symbol pnl usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) StrategyPerformance(c echo.Context) error {
	req := &models.StrategyPerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.ComputeStrategyPerformance(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("strategy performance usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) RecentTrades(c echo.Context) error {
	req := &models.RecentTradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.ComputeRecentTrades(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("recent trades usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) Evaluation(c echo.Context) error {
	req := &models.AnalyticsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.ComputeEvaluationMetrics(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("evaluation usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) Distribution(c echo.Context) error {
	req := &models.DistributionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.ComputeDistributionConcentration(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("distribution usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) Tilt(c echo.Context) error {
	req := &models.AnalyticsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.ComputeTiltMetric(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("tilt usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) PairedTrades(c echo.Context) error {
	req := &models.PairedTradesByStrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.PairedTradesByStrategy(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("paired trades usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) DailyPnl(c echo.Context) error {
	req := &models.AnalyticsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.DailyPnl(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("daily pnl usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) EquityCurve(c echo.Context) error {
	req := &models.AnalyticsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.EquityCurve(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("equity curve usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) OpenPositions(c echo.Context) error {
	req := &models.AnalyticsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.OpenPositions(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("open positions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) TopSymbols(c echo.Context) error {
	req := &models.TopSymbolsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.TopSymbols(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("top symbols usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) Overview(c echo.Context) error {
	req := &models.OverviewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analytics.Overview(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("overview usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
