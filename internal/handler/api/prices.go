package api

import (
	"errors"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
	"PriceTrend/internal/usecase"
	xhttp "PriceTrend/pkg/http"
	xlogger "PriceTrend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PricesHandler serves range queries over the hourly price series.
type PricesHandler struct {
	logger  *xlogger.Logger
	queries *usecase.QueryService
	store   repository.SeriesStore
}

func NewPricesHandler(logger *xlogger.Logger, queries *usecase.QueryService, store repository.SeriesStore) *PricesHandler {
	return &PricesHandler{logger: logger, queries: queries, store: store}
}

func (h *PricesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/prices/:begin/:end", h.Prices)
	e.GET("/healthz", h.Health)
}

// Prices handles GET /api/prices/:begin/:end?points=N.
func (h *PricesHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pts, err := h.queries.Query(c.Request().Context(), req.Begin, req.End, req.MaxPoints)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidRange):
			return xhttp.BadRequestResponse(c, err.Error())
		case errors.Is(err, models.ErrNoData):
			return xhttp.NotFoundResponse(c, err.Error())
		case errors.Is(err, models.ErrImportRunning):
			return xhttp.ServiceUnavailableResponse(c, err.Error())
		default:
			h.logger.Error("range query failed", xlogger.Error(err),
				xlogger.Int64("begin", req.Begin), xlogger.Int64("end", req.End))
			return xhttp.ServiceUnavailableResponse(c, "series store unavailable, retry later")
		}
	}

	return xhttp.SuccessResponse(c, pts)
}

// Health handles GET /healthz.
func (h *PricesHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		return xhttp.ServiceUnavailableResponse(c, "store unreachable")
	}
	return xhttp.SuccessResponse(c, "ok")
}
