package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"occupancy/internal/model"
	"occupancy/internal/service"
)

// EnvironmentHandler serves the environment directory.
type EnvironmentHandler struct {
	svc service.EnvironmentService
}

// NewEnvironmentHandler creates a new environment handler.
func NewEnvironmentHandler(svc service.EnvironmentService) *EnvironmentHandler {
	return &EnvironmentHandler{svc: svc}
}

// CreateEnvironmentRequest is the payload of POST /environments.
type CreateEnvironmentRequest struct {
	Name        string                `json:"name" validate:"required"`
	Type        model.EnvironmentType `json:"type" validate:"required,oneof=classroom laboratory study_room"`
	Description string                `json:"description"`
	Capacity    int                   `json:"capacity" validate:"required,min=1"`
	Building    string                `json:"building"`
	Floor       string                `json:"floor"`
}

// UpdateEnvironmentRequest is the payload of PATCH /environments/:id.
type UpdateEnvironmentRequest struct {
	Name        *string                `json:"name" validate:"omitempty,min=1"`
	Type        *model.EnvironmentType `json:"type" validate:"omitempty,oneof=classroom laboratory study_room"`
	Description *string                `json:"description"`
	Capacity    *int                   `json:"capacity" validate:"omitempty,min=1"`
	Building    *string                `json:"building"`
	Floor       *string                `json:"floor"`
	IsActive    *bool                  `json:"isActive"`
}

// CreateEnvironment godoc
// @Summary Create environment
// @Description Restores a deleted environment with the same name.
// @Tags environments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEnvironmentRequest true "Environment payload"
// @Success 201 {object} errors.DataResponse{data=model.Environment}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /environments [post]
func (h *EnvironmentHandler) CreateEnvironment(c echo.Context) error {
	var req CreateEnvironmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	env, err := h.svc.Create(c.Request().Context(), service.EnvironmentInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Capacity:    req.Capacity,
		Building:    req.Building,
		Floor:       req.Floor,
	})
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusCreated, env)
}

// ListEnvironments godoc
// @Summary List environments
// @Tags environments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.DataResponse{data=[]model.Environment}
// @Router /environments [get]
func (h *EnvironmentHandler) ListEnvironments(c echo.Context) error {
	envs, err := h.svc.List(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, envs)
}

// GetEnvironment godoc
// @Summary Get environment by ID
// @Tags environments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Environment ID"
// @Success 200 {object} errors.DataResponse{data=model.Environment}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /environments/{id} [get]
func (h *EnvironmentHandler) GetEnvironment(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	env, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, env)
}

// UpdateEnvironment godoc
// @Summary Update environment
// @Tags environments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Environment ID"
// @Param request body UpdateEnvironmentRequest true "Fields to change"
// @Success 200 {object} errors.DataResponse{data=model.Environment}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /environments/{id} [patch]
func (h *EnvironmentHandler) UpdateEnvironment(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req UpdateEnvironmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	env, err := h.svc.Update(c.Request().Context(), id, service.EnvironmentPatch{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Capacity:    req.Capacity,
		Building:    req.Building,
		Floor:       req.Floor,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, env)
}

// DeleteEnvironment godoc
// @Summary Delete environment
// @Tags environments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Environment ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /environments/{id} [delete]
func (h *EnvironmentHandler) DeleteEnvironment(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return respondMessage(c, http.StatusOK, "environment removed")
}
