package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"occupancy/internal/service"
)

// StudentHandler serves the student directory. All routes are admin only.
type StudentHandler struct {
	svc service.StudentService
}

// NewStudentHandler creates a handler layer.
func NewStudentHandler(svc service.StudentService) *StudentHandler {
	return &StudentHandler{svc: svc}
}

// CreateStudentRequest is the payload of POST /students.
type CreateStudentRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Registration string `json:"registration" validate:"required"`
}

// UpdateStudentRequest is the payload of PATCH /students/:id. Omitted fields
// are left unchanged.
type UpdateStudentRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Password     *string `json:"password" validate:"omitempty,min=6"`
	Registration *string `json:"registration" validate:"omitempty,min=1"`
	IsActive     *bool   `json:"isActive"`
}

// CreateStudent godoc
// @Summary Create student
// @Description Restores a deleted student that shares the email or registration.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateStudentRequest true "Student payload"
// @Success 201 {object} errors.DataResponse{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /students [post]
func (h *StudentHandler) CreateStudent(c echo.Context) error {
	var req CreateStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.Create(c.Request().Context(), service.StudentInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Registration: req.Registration,
	})
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusCreated, user)
}

// ListStudents godoc
// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.DataResponse{data=[]model.User}
// @Router /students [get]
func (h *StudentHandler) ListStudents(c echo.Context) error {
	users, err := h.svc.List(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, users)
}

// GetStudent godoc
// @Summary Get student by ID
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} errors.DataResponse{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /students/{id} [get]
func (h *StudentHandler) GetStudent(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, user)
}

// UpdateStudent godoc
// @Summary Update student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param request body UpdateStudentRequest true "Fields to change"
// @Success 200 {object} errors.DataResponse{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /students/{id} [patch]
func (h *StudentHandler) UpdateStudent(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req UpdateStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.Update(c.Request().Context(), id, service.StudentPatch{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Registration: req.Registration,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return fail(err)
	}
	return respond(c, http.StatusOK, user)
}

// DeleteStudent godoc
// @Summary Delete student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /students/{id} [delete]
func (h *StudentHandler) DeleteStudent(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return respondMessage(c, http.StatusOK, "student removed")
}
