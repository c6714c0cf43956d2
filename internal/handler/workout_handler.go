package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"coachgate/internal/auth"
	"coachgate/internal/errors"
	"coachgate/internal/model"
	"coachgate/internal/service"
)

// WorkoutHandler handles workout endpoints.
type WorkoutHandler struct {
	workoutService service.WorkoutService
}

// NewWorkoutHandler creates a new workout handler.
func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// CountResponse is the number of active self-created workouts of a user.
type CountResponse struct {
	Count int `json:"count"`
}

// CreateWorkoutRequest represents a workout creation request. OwnerID is
// set by coaches and admins creating for a customer.
type CreateWorkoutRequest struct {
	OwnerID string `json:"owner_id" validate:"omitempty,uuid"`
	Name    string `json:"name" validate:"required,notblank,max=255"`
	Notes   string `json:"notes" validate:"max=4000"`
}

// Count godoc
// @Summary Count active self-created workouts
// @Tags workouts
// @Produce json
// @Security BearerAuth
// @Param count query string true "Count kind" Enums(user)
// @Param userId query string false "User ID, defaults to the caller"
// @Success 200 {object} CountResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /workout [get]
func (h *WorkoutHandler) Count(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if c.QueryParam("count") != "user" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "unsupported count kind",
			Code:  "INVALID_QUERY",
		})
	}
	userID, err := parseUUID(c.QueryParam("userId"), "userId")
	if err != nil {
		return err
	}
	if userID == uuid.Nil {
		userID = p.UserID
	}

	n, err := h.workoutService.CountActiveSelfCreated(c.Request().Context(), p, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

// Limit godoc
// @Summary Workout creation decision for the caller
// @Description Decided from the caller's stored roles, which may differ from the token's.
// @Tags workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gate.Decision
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /workout/limit [get]
func (h *WorkoutHandler) Limit(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	d, err := h.workoutService.Limit(c.Request().Context(), p)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// List godoc
// @Summary List workouts
// @Tags workouts
// @Produce json
// @Security BearerAuth
// @Param ownerId query string false "Owner ID, defaults to the caller"
// @Param status query string false "Status filter" Enums(active, archived, completed)
// @Success 200 {array} model.Workout
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /workouts [get]
func (h *WorkoutHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ownerID, err := parseUUID(c.QueryParam("ownerId"), "ownerId")
	if err != nil {
		return err
	}

	workouts, err := h.workoutService.List(c.Request().Context(), p, ownerID, model.WorkoutStatus(c.QueryParam("status")))
	if err != nil {
		return domainError(err)
	}
	if workouts == nil {
		workouts = []model.Workout{}
	}
	return c.JSON(http.StatusOK, workouts)
}

// Create godoc
// @Summary Create a workout
// @Description Customers may hold at most three active workouts they created themselves. Coaches and admins are unlimited.
// @Tags workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateWorkoutRequest true "Workout"
// @Success 201 {object} model.Workout
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /workouts [post]
func (h *WorkoutHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req CreateWorkoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ownerID, err := parseUUID(req.OwnerID, "owner_id")
	if err != nil {
		return err
	}

	workout, err := h.workoutService.Create(c.Request().Context(), p, service.CreateWorkoutInput{
		OwnerID: ownerID,
		Name:    req.Name,
		Notes:   req.Notes,
	})
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, workout)
}

// Archive godoc
// @Summary Archive a workout
// @Tags workouts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workout ID"
// @Success 200 {object} model.Workout
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /workouts/{id}/archive [post]
func (h *WorkoutHandler) Archive(c echo.Context) error {
	return h.transition(c, h.workoutService.Archive)
}

// Complete godoc
// @Summary Mark a workout completed
// @Tags workouts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workout ID"
// @Success 200 {object} model.Workout
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /workouts/{id}/complete [post]
func (h *WorkoutHandler) Complete(c echo.Context) error {
	return h.transition(c, h.workoutService.Complete)
}

// Restore godoc
// @Summary Restore a workout to active
// @Tags workouts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workout ID"
// @Success 200 {object} model.Workout
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /workouts/{id}/restore [post]
func (h *WorkoutHandler) Restore(c echo.Context) error {
	return h.transition(c, h.workoutService.Restore)
}

type transitionFunc func(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Workout, error)

func (h *WorkoutHandler) transition(c echo.Context, fn transitionFunc) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	workout, err := fn(c.Request().Context(), p, id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, workout)
}
