package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"coachgate/internal/auth"
	"coachgate/internal/errors"
)

// ContextKeyUser is where the auth middleware stores validated *auth.Claims.
const ContextKeyUser = "user"

// principal returns the authenticated caller of the request.
func principal(c echo.Context) (auth.Principal, error) {
	claims, ok := c.Get(ContextKeyUser).(*auth.Claims)
	if !ok || claims == nil {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "missing or invalid token",
			Code:  "UNAUTHORIZED",
		})
	}
	p, err := auth.PrincipalFromClaims(claims)
	if err != nil {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid token subject",
			Code:  "UNAUTHORIZED",
		})
	}
	return p, nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	return parseUUID(c.Param(name), name)
}

// parseUUID parses raw, reporting field in the error. An empty raw is uuid.Nil.
func parseUUID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid " + field,
			Code:  "INVALID_UUID",
		})
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_FAILED",
		})
	}
	return nil
}

func domainError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
