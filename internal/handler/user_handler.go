package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"coachgate/internal/model"
	"coachgate/internal/service"
)

// UserHandler serves user and role endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// SetRolesRequest replaces the roles of a user.
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,role"`
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), p.UserID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// SetRoles godoc
// @Summary Replace a user's roles
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body SetRolesRequest true "Roles"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/roles [put]
func (h *UserHandler) SetRoles(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req SetRolesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.SetRoles(c.Request().Context(), p, id, req.Roles)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, user)
}
