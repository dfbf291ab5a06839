package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"occupancy/internal/auth"
	"occupancy/internal/model"
	"occupancy/internal/service"
)

const maxAccessLogLimit = 500

// AccessLogHandler exposes the session ledger.
type AccessLogHandler struct {
	svc service.AccessService
}

// NewAccessLogHandler creates a new access log handler.
func NewAccessLogHandler(svc service.AccessService) *AccessLogHandler {
	return &AccessLogHandler{svc: svc}
}

// RegisterAccessRequest is the payload of POST /access-logs.
type RegisterAccessRequest struct {
	StudentID     string             `json:"studentId" validate:"required,uuid"`
	EnvironmentID string             `json:"environmentId" validate:"required,uuid"`
	Action        model.AccessAction `json:"action" validate:"required,oneof=check_in check_out"`
}

func callerFrom(c echo.Context) (service.Caller, error) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return service.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return service.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return service.Caller{UserID: userID, Role: claims.Role}, nil
}

// RegisterAccess godoc
// @Summary Register check-in or check-out
// @Description A student holds at most one open session. Check-out must name the environment of that session.
// @Tags access-logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RegisterAccessRequest true "Access event"
// @Success 201 {object} errors.DataResponse{data=model.AccessLog}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /access-logs [post]
func (h *AccessLogHandler) RegisterAccess(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req RegisterAccessRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	log, err := h.svc.RegisterAccess(
		c.Request().Context(),
		caller,
		uuid.MustParse(req.StudentID),
		uuid.MustParse(req.EnvironmentID),
		req.Action,
	)
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusCreated, log)
}

// ListAccessLogs godoc
// @Summary List access history
// @Description Students only see their own history.
// @Tags access-logs
// @Produce json
// @Security BearerAuth
// @Param environmentId query string false "Filter by environment"
// @Param studentId query string false "Filter by student (admin only)"
// @Param open query bool false "Only open sessions"
// @Param limit query int false "Maximum rows (default and cap 500)"
// @Success 200 {object} errors.DataResponse{data=[]model.AccessLog}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /access-logs [get]
func (h *AccessLogHandler) ListAccessLogs(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	filter := service.AccessFilter{Limit: maxAccessLogLimit}
	if v := c.QueryParam("environmentId"); v != "" {
		if filter.EnvironmentID, err = uuid.Parse(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid environmentId")
		}
	}
	if v := c.QueryParam("studentId"); v != "" {
		if filter.StudentID, err = uuid.Parse(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid studentId")
		}
	}
	if v := c.QueryParam("open"); v != "" {
		if filter.OpenOnly, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid open")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = min(limit, maxAccessLogLimit)
	}

	logs, err := h.svc.ListAccess(c.Request().Context(), caller, filter)
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, logs)
}
