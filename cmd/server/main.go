package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"coachgate/docs" // swagger docs
	"coachgate/internal/auth"
	"coachgate/internal/cache"
	"coachgate/internal/config"
	"coachgate/internal/db"
	"coachgate/internal/gate"
	"coachgate/internal/handler"
	"coachgate/internal/logger"
	"coachgate/internal/repository"
	"coachgate/internal/router"
	"coachgate/internal/service"
)

// @title Coachgate API
// @version 1.0
// @description Workout coaching API with role-based access and a per-customer workout creation limit.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.AppEnv)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "http://"), "https://")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, cfg.AppEnv == "development")
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB, log); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
	defer cacheClient.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	workoutRepo := repository.NewWorkoutRepository(gormDB)
	workoutLogRepo := repository.NewWorkoutLogRepository(gormDB)
	assignmentRepo := repository.NewAssignmentRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	policy := gate.NewPolicy(cfg.CustomerWorkoutLimit)
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	userService := service.NewUserService(userRepo, cacheClient)
	workoutService := service.NewWorkoutService(userRepo, workoutRepo, workoutLogRepo, assignmentRepo, cacheClient, policy, log)
	defer workoutService.Close()
	assignmentService := service.NewAssignmentService(userRepo, assignmentRepo)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		User:       handler.NewUserHandler(userService),
		Workout:    handler.NewWorkoutHandler(workoutService),
		Assignment: handler.NewAssignmentHandler(assignmentService),
	}, jwtService, tokenStore, log, map[string]router.HealthCheck{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": cacheClient.Ping,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.ServerPort
	go func() {
		log.Info().
			Str("addr", addr).
			Int("customer_workout_limit", policy.CustomerLimit).
			Str("swagger", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html").
			Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
