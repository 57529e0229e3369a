package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wayde1122/chat-box-code/internal/travel"
)

type TravelHandler struct {
	Planner TravelPlanner
}

func (h *TravelHandler) Register(g *echo.Group) {
	g.POST("/travel/plan", h.plan)
	g.GET("/travel/plan", methodNotAllowed)
}

func (h *TravelHandler) plan(c echo.Context) error {
	var req travel.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if h.Planner == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "travel planner is not configured")
	}
	ctx, span := serverTracer.Start(c.Request().Context(), "TravelHandler.plan")
	defer span.End()
	brief, err := h.Planner.Plan(ctx, req)
	switch {
	case errors.Is(err, travel.ErrNoDestination), errors.Is(err, travel.ErrInvalidDates):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, brief)
}
