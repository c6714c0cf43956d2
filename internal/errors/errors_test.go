package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{err: ErrUserNotFound, status: http.StatusNotFound, code: "USER_NOT_FOUND"},
		{err: ErrWorkoutNotFound, status: http.StatusNotFound, code: "WORKOUT_NOT_FOUND"},
		{err: fmt.Errorf("create workout: %w", ErrWorkoutLimitReached), status: http.StatusForbidden, code: "WORKOUT_LIMIT_REACHED"},
		{err: ErrForbidden, status: http.StatusForbidden, code: "FORBIDDEN"},
		{err: ErrInvalidStatusTransition, status: http.StatusConflict, code: "INVALID_STATUS_TRANSITION"},
		{err: ErrAssignmentExists, status: http.StatusConflict, code: "ASSIGNMENT_EXISTS"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.code, httpErr.ToErrorResponse().Code)
		})
	}
}

func TestMapErrorToHTTPHidesInternalDetails(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.3:3306: refused"))
	assert.Equal(t, "internal server error", httpErr.Error())
}
