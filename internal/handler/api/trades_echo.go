package api

import (
	"net/http"
	"strconv"

	models "TradeLens/internal/domain/models"
	"TradeLens/internal/service/ratelimit"
	"TradeLens/internal/usecase"
	xhttp "TradeLens/pkg/http"
	xlogger "TradeLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TradesEchoHandler covers the raw execution CRUD surface plus CSV import.
// Import is rate limited per client IP; parsing a large broker export is the
// most expensive write this server takes.
type TradesEchoHandler struct {
	logger         *xlogger.Logger
	trades         *usecase.TradesUseCase
	rl             *ratelimit.Limiter
	importBurst    float64
	importRefill   float64 // tokens per second
	importMaxBytes int64   // zero means unlimited
}

func NewTradesEchoHandler(logger *xlogger.Logger, trades *usecase.TradesUseCase) *TradesEchoHandler {
	return &TradesEchoHandler{
		logger:       logger,
		trades:       trades,
		rl:           ratelimit.New(),
		importBurst:  3,
		importRefill: 1,
	}
}

// SetImportRate overrides the per-IP import throttle. Non-positive values
// are ignored.
func (h *TradesEchoHandler) SetImportRate(burst, perMinute int) {
	if burst > 0 {
		h.importBurst = float64(burst)
	}
	if perMinute > 0 {
		h.importRefill = float64(perMinute) / 60
	}
}

// SetMaxPayload caps the import request body size.
func (h *TradesEchoHandler) SetMaxPayload(n int) {
	if n > 0 {
		h.importMaxBytes = int64(n)
	}
}

func (h *TradesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/trades")
	g.GET("", h.List)
	g.POST("", h.Add)
	g.DELETE("", h.Clear)
	g.GET("/symbols", h.Symbols)
	g.POST("/import", h.Import)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/strategy", h.AssignStrategy)
}

func (h *TradesEchoHandler) List(c echo.Context) error {
	req := &models.ListTradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.trades.List(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("list trades usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradesEchoHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.trades.Get(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("get trade usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradesEchoHandler) Add(c echo.Context) error {
	req := &models.TradeWriteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.trades.Add(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("add trade usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *TradesEchoHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.TradeWriteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.trades.Update(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("update trade usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradesEchoHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	if err := h.trades.Delete(c.Request().Context(), id); err != nil {
		h.logger.Error("delete trade usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *TradesEchoHandler) AssignStrategy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.AssignStrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.trades.AssignStrategy(c.Request().Context(), id, req.StrategyID); err != nil {
		h.logger.Error("assign strategy usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *TradesEchoHandler) Import(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":import", h.importBurst, h.importRefill) {
		h.logger.Warn("csv import rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_RATE_LIMITED", "", "too many import requests", http.StatusTooManyRequests))
	}
	if h.importMaxBytes > 0 {
		if cl := c.Request().ContentLength; cl > h.importMaxBytes {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError(
				"ERR_PAYLOAD_TOO_LARGE", "csv_data", "import payload too large", http.StatusRequestEntityTooLarge))
		}
		// Chunked uploads bypass ContentLength; cap the body read too.
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.importMaxBytes)
	}
	req := &models.ImportCsvRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.trades.ImportCsv(c.Request().Context(), req.CsvData)
	if err != nil {
		h.logger.Error("csv import usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradesEchoHandler) Clear(c echo.Context) error {
	deleted, err := h.trades.Clear(c.Request().Context())
	if err != nil {
		h.logger.Error("clear trades usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, &models.ClearResult{Deleted: deleted})
}

func (h *TradesEchoHandler) Symbols(c echo.Context) error {
	res, err := h.trades.Symbols(c.Request().Context())
	if err != nil {
		h.logger.Error("symbols usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// pathID parses the :id route segment.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, xhttp.BadRequestErrorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}
