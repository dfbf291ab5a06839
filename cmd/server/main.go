package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	_ "occupancy/docs" // swagger docs

	"occupancy/internal/auth"
	"occupancy/internal/cache"
	"occupancy/internal/config"
	"occupancy/internal/db"
	"occupancy/internal/handler"
	"occupancy/internal/logging"
	"occupancy/internal/metrics"
	"occupancy/internal/repository"
	"occupancy/internal/router"
	"occupancy/internal/service"
)

// @title Space Occupancy API
// @version 1.0
// @description Check-in/check-out ledger and live occupancy of rooms and laboratories.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gormDB, err := db.Open(cfg)
	if err != nil {
		slog.Error("database init", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB, cfg.DBDriver, cfg.ResetDB); err != nil {
		slog.Error("auto-migrate", "error", err)
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		slog.Warn("redis unavailable, running without cache and token revocation", "addr", cfg.RedisAddr, "error", err)
	}
	cancel()

	reg := metrics.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	envRepo := repository.NewEnvironmentRepository(gormDB)
	logRepo := repository.NewAccessLogRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	studentService := service.NewStudentService(userRepo, cacheClient)
	environmentService := service.NewEnvironmentService(envRepo, cacheClient)
	accessService := service.NewAccessService(logRepo, userRepo, envRepo, clockwork.NewRealClock(), ledgerMetrics)
	dashboardService := service.NewDashboardService(logRepo, envRepo)

	e := echo.New()
	router.Register(e, cfg, reg, tokenStore, router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Student:     handler.NewStudentHandler(studentService),
		Environment: handler.NewEnvironmentHandler(environmentService),
		AccessLog:   handler.NewAccessLogHandler(accessService),
		Dashboard:   handler.NewDashboardHandler(dashboardService),
	})

	done := runGracefulShutdown(e, cacheClient)

	slog.Info("server starting", "port", cfg.ServerPort, "db_driver", cfg.DBDriver)
	if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server start", "error", err)
		os.Exit(1)
	}

	<-done
}

func runGracefulShutdown(e *echo.Echo, cacheClient *cache.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, cleaning up")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := cacheClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}

		close(done)
	}()

	return done
}
