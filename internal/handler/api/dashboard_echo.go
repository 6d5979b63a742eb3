package api

import (
	"errors"
	"net/http"

	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	"StockDash/internal/usecase"
	xhttp "StockDash/pkg/http"
	xlogger "StockDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardEchoHandler serves the dashboard JSON API.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	dash   *usecase.Dashboard
}

func NewDashboardEchoHandler(logger *xlogger.Logger, dash *usecase.Dashboard) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, dash: dash}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/tickers", h.Tickers)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/predictions/:ticker", h.Prediction)
	g.GET("/top", h.Top)
	e.GET("/healthz", h.Health)
}

func (h *DashboardEchoHandler) Tickers(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dash.Tickers())
}

// Dashboard renders all six figures and the text for the query state.
func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	req := &models.UIState{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out := h.dash.Render(*req)
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardEchoHandler) Prediction(c echo.Context) error {
	req := &models.PredictionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Prediction(req.Ticker)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no prediction for ticker %s", req.Ticker).
				WithParam("ticker", req.Ticker).WithError(err))
		}
		h.logger.Error("prediction usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Top(c echo.Context) error {
	req := &models.TopRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	dir := models.Direction(req.Direction)
	rows := h.dash.Top(req.N, dir)
	return xhttp.SuccessResponse(c, models.TopResponse{Direction: dir, Rows: rows})
}

// Health reports the loaded row counts. The store is immutable, so a running
// process is always ready.
func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"store":  h.dash.Stats(),
	})
}
