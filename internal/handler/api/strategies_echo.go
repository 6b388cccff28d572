package api

import (
	models "TradeLens/internal/domain/models"
	"TradeLens/internal/usecase"
	xhttp "TradeLens/pkg/http"
	xlogger "TradeLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StrategiesEchoHandler manages the strategy label CRUD surface.
type StrategiesEchoHandler struct {
	logger     *xlogger.Logger
	strategies *usecase.StrategiesUseCase
}

func NewStrategiesEchoHandler(logger *xlogger.Logger, strategies *usecase.StrategiesUseCase) *StrategiesEchoHandler {
	return &StrategiesEchoHandler{logger: logger, strategies: strategies}
}

func (h *StrategiesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/strategies")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *StrategiesEchoHandler) List(c echo.Context) error {
	res, err := h.strategies.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list strategies usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategiesEchoHandler) Create(c echo.Context) error {
	req := &models.StrategyWriteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.strategies.Create(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("create strategy usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *StrategiesEchoHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.StrategyWriteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.strategies.Update(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("update strategy usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategiesEchoHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	if err := h.strategies.Delete(c.Request().Context(), id); err != nil {
		h.logger.Error("delete strategy usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}
