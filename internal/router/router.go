package router

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"coachgate/internal/auth"
	apperrors "coachgate/internal/errors"
	"coachgate/internal/handler"
	"coachgate/internal/roles"
	"coachgate/internal/validation"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Workout    *handler.WorkoutHandler
	Assignment *handler.AssignmentHandler
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	h Handlers,
	jwtService *auth.JWTService,
	tokens auth.TokenStoreInterface,
	log zerolog.Logger,
	checks map[string]HealthCheck,
) {
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(log))
	e.Use(middleware.Recover())

	e.Validator = validation.New()

	e.GET("/healthz", healthz(checks))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("", JWT(jwtService, tokens))

	secured.GET("/me", h.User.Me)

	secured.GET("/workout", h.Workout.Count)
	secured.GET("/workout/limit", h.Workout.Limit)
	secured.GET("/workouts", h.Workout.List)
	secured.POST("/workouts", h.Workout.Create)
	secured.POST("/workouts/:id/archive", h.Workout.Archive)
	secured.POST("/workouts/:id/complete", h.Workout.Complete)
	secured.POST("/workouts/:id/restore", h.Workout.Restore)

	coach := secured.Group("/coach", RequireRole(roles.Coach))
	coach.GET("/customers", h.Assignment.Customers)

	admin := secured.Group("/admin", RequireRole(roles.Admin))
	admin.GET("/users", h.User.ListUsers)
	admin.PUT("/users/:id/roles", h.User.SetRoles)
	admin.POST("/assignments", h.Assignment.Assign)
	admin.DELETE("/assignments", h.Assignment.Unassign)
}

// JWT validates bearer access tokens and stores *auth.Claims in the context.
// Blacklisted tokens are rejected when tokens is set.
func JWT(jwtService *auth.JWTService, tokens auth.TokenStoreInterface) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ContextKeyUser,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, err
			}
			if tokens != nil && claims.ID != "" {
				revoked, err := tokens.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if err == nil && revoked {
					return nil, errors.New("token revoked")
				}
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: "missing or invalid token",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// RequireRole allows the request when the caller holds any of rs.
func RequireRole(rs ...roles.Role) echo.MiddlewareFunc {
	want := roles.NewSet(rs...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(handler.ContextKeyUser).(*auth.Claims)
			if !ok || roles.Resolve(claims)&want == 0 {
				return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
					Error: "insufficient role",
					Code:  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func healthz(checks map[string]HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := make([]string, 0)
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			return c.String(http.StatusServiceUnavailable, "unavailable: "+strings.Join(failed, ","))
		}
		return c.String(http.StatusOK, "ok")
	}
}
