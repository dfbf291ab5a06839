package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"occupancy/internal/service"
)

// DashboardHandler serves live occupancy.
type DashboardHandler struct {
	svc service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GetOccupation godoc
// @Summary Current occupancy per environment
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.DataResponse{data=[]service.OccupancyEntry}
// @Failure 401 {object} errors.ErrorResponse
// @Router /dashboard/occupation [get]
func (h *DashboardHandler) GetOccupation(c echo.Context) error {
	entries, err := h.svc.GetOccupationData(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, entries)
}
