package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserInactive is returned when a user is not active.
	ErrUserInactive = errors.New("user is not active")
	// ErrWorkoutNotFound is returned when a workout is not found.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrWorkoutLimitReached is returned when a customer already holds the
	// maximum number of active self-created workouts.
	ErrWorkoutLimitReached = errors.New("workout limit reached")
	// ErrInvalidStatusTransition is returned when a workout cannot move to
	// the requested status.
	ErrInvalidStatusTransition = errors.New("invalid workout status transition")
	// ErrForbidden is returned when the caller may not act on a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRole is returned when a role does not fit the operation.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAssignmentExists is returned when a coach is already assigned.
	ErrAssignmentExists = errors.New("coach already assigned to customer")
	// ErrAssignmentNotFound is returned when no such assignment exists.
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrUserInactive):
		return NewHTTPError(http.StatusForbidden, ErrUserInactive.Error(), "USER_INACTIVE")
	case errors.Is(err, ErrWorkoutNotFound):
		return NewHTTPError(http.StatusNotFound, ErrWorkoutNotFound.Error(), "WORKOUT_NOT_FOUND")
	case errors.Is(err, ErrWorkoutLimitReached):
		return NewHTTPError(http.StatusForbidden, err.Error(), "WORKOUT_LIMIT_REACHED")
	case errors.Is(err, ErrInvalidStatusTransition):
		return NewHTTPError(http.StatusConflict, err.Error(), "INVALID_STATUS_TRANSITION")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrInvalidRole):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_ROLE")
	case errors.Is(err, ErrAssignmentExists):
		return NewHTTPError(http.StatusConflict, ErrAssignmentExists.Error(), "ASSIGNMENT_EXISTS")
	case errors.Is(err, ErrAssignmentNotFound):
		return NewHTTPError(http.StatusNotFound, ErrAssignmentNotFound.Error(), "ASSIGNMENT_NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
