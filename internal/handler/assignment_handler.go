package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"coachgate/internal/model"
	"coachgate/internal/service"
)

// AssignmentHandler handles coach assignment endpoints.
type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// AssignmentRequest identifies a coach and a customer.
type AssignmentRequest struct {
	CoachID    string `json:"coach_id" validate:"required,uuid"`
	CustomerID string `json:"customer_id" validate:"required,uuid"`
}

// Assign godoc
// @Summary Assign a coach to a customer
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AssignmentRequest true "Assignment"
// @Success 201 {object} model.CoachAssignment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/assignments [post]
func (h *AssignmentHandler) Assign(c echo.Context) error {
	var req AssignmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	coachID, err := parseUUID(req.CoachID, "coach_id")
	if err != nil {
		return err
	}
	customerID, err := parseUUID(req.CustomerID, "customer_id")
	if err != nil {
		return err
	}

	assignment, err := h.assignmentService.Assign(c.Request().Context(), coachID, customerID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, assignment)
}

// Unassign godoc
// @Summary Remove a coach from a customer
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AssignmentRequest true "Assignment"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/assignments [delete]
func (h *AssignmentHandler) Unassign(c echo.Context) error {
	var req AssignmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	coachID, err := parseUUID(req.CoachID, "coach_id")
	if err != nil {
		return err
	}
	customerID, err := parseUUID(req.CustomerID, "customer_id")
	if err != nil {
		return err
	}

	if err := h.assignmentService.Unassign(c.Request().Context(), coachID, customerID); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Customers godoc
// @Summary Customers assigned to the calling coach
// @Tags coach
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /coach/customers [get]
func (h *AssignmentHandler) Customers(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	customers, err := h.assignmentService.Customers(c.Request().Context(), p.UserID)
	if err != nil {
		return domainError(err)
	}
	if customers == nil {
		customers = []model.User{}
	}
	return c.JSON(http.StatusOK, customers)
}
