// Package seed loads the initial admin account and a set of sample
// environments into an empty database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "occupancy/internal/errors"
	"occupancy/internal/model"
	"occupancy/internal/repository"
	"occupancy/internal/service"
)

// Admin describes the bootstrap administrator.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// Result counts what a run created.
type Result struct {
	AdminCreated        bool
	EnvironmentsCreated int
	EnvironmentsSkipped int
}

// SampleEnvironments are created when absent.
var SampleEnvironments = []service.EnvironmentInput{
	{Name: "Sala 101", Type: model.EnvironmentClassroom, Capacity: 40, Building: "A", Floor: "1", Description: "Lecture room"},
	{Name: "Sala 102", Type: model.EnvironmentClassroom, Capacity: 35, Building: "A", Floor: "1"},
	{Name: "Laboratório de Informática", Type: model.EnvironmentLaboratory, Capacity: 25, Building: "B", Floor: "2", Description: "Computer lab"},
	{Name: "Laboratório de Química", Type: model.EnvironmentLaboratory, Capacity: 20, Building: "B", Floor: "1"},
	{Name: "Sala de Estudos", Type: model.EnvironmentStudyRoom, Capacity: 15, Building: "C", Floor: "Térreo", Description: "Quiet study room"},
}

// Run creates the admin when no user owns its email, then every sample
// environment whose name is not taken. Names held by a soft-deleted
// environment count as taken, so a removed sample stays removed. It is
// safe to run repeatedly.
func Run(ctx context.Context, users repository.UserRepository, envRepo repository.EnvironmentRepository, envs service.EnvironmentService, admin Admin, samples []service.EnvironmentInput) (Result, error) {
	var res Result

	created, err := ensureAdmin(ctx, users, admin)
	if err != nil {
		return res, err
	}
	res.AdminCreated = created

	for _, in := range samples {
		deleted, err := envRepo.FindDeletedByName(ctx, in.Name)
		if err != nil {
			return res, fmt.Errorf("find deleted environment %q: %w", in.Name, err)
		}
		if deleted != nil {
			res.EnvironmentsSkipped++
			continue
		}
		if _, err := envs.Create(ctx, in); err != nil {
			if errors.Is(err, apperrors.ErrEnvironmentConflict) {
				res.EnvironmentsSkipped++
				continue
			}
			return res, fmt.Errorf("create environment %q: %w", in.Name, err)
		}
		res.EnvironmentsCreated++
	}

	slog.InfoContext(ctx, "seed completed",
		"admin_created", res.AdminCreated,
		"environments_created", res.EnvironmentsCreated,
		"environments_skipped", res.EnvironmentsSkipped,
	)
	return res, nil
}

func ensureAdmin(ctx context.Context, users repository.UserRepository, admin Admin) (bool, error) {
	if admin.Email == "" || admin.Password == "" {
		slog.WarnContext(ctx, "admin credentials not configured, skipping admin account")
		return false, nil
	}

	_, err := users.FindByEmail(ctx, admin.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("find admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	user := &model.User{
		Name:         admin.Name,
		Email:        admin.Email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	slog.InfoContext(ctx, "admin account created", "email", admin.Email)
	return true, nil
}
