package main

import (
	"context"
	"log/slog"
	"os"

	"occupancy/internal/config"
	"occupancy/internal/db"
	"occupancy/internal/logging"
	"occupancy/internal/repository"
	"occupancy/internal/seed"
	"occupancy/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting seed script")

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gormDB, err := db.Open(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database", "driver", cfg.DBDriver)

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB, cfg.DBDriver, false); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepository(gormDB)
	envRepo := repository.NewEnvironmentRepository(gormDB)
	envService := service.NewEnvironmentService(envRepo, nil)

	admin := seed.Admin{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}
	if _, err := seed.Run(context.Background(), userRepo, envRepo, envService, admin, seed.SampleEnvironments); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}
