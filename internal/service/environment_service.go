package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"occupancy/internal/cache"
	apperrors "occupancy/internal/errors"
	"occupancy/internal/model"
	"occupancy/internal/repository"
)

const environmentCacheTTL = 5 * time.Minute

// EnvironmentInput carries the fields of a new environment.
type EnvironmentInput struct {
	Name        string
	Type        model.EnvironmentType
	Description string
	Capacity    int
	Building    string
	Floor       string
}

// EnvironmentPatch carries the fields to change; nil means unchanged.
type EnvironmentPatch struct {
	Name        *string
	Type        *model.EnvironmentType
	Description *string
	Capacity    *int
	Building    *string
	Floor       *string
	IsActive    *bool
}

// EnvironmentService manages the environment directory.
type EnvironmentService interface {
	Create(ctx context.Context, in EnvironmentInput) (*model.Environment, error)
	List(ctx context.Context) ([]model.Environment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Environment, error)
	Update(ctx context.Context, id uuid.UUID, patch EnvironmentPatch) (*model.Environment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type environmentService struct {
	repo  repository.EnvironmentRepository
	cache *cache.Client
}

// NewEnvironmentService creates a new environment service.
func NewEnvironmentService(repo repository.EnvironmentRepository, cache *cache.Client) EnvironmentService {
	return &environmentService{repo: repo, cache: cache}
}

func (s *environmentService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("environment:%s", id.String())
}

// Create adds an environment. A soft-deleted environment with the same name
// is restored with the new fields instead of inserting a duplicate.
func (s *environmentService) Create(ctx context.Context, in EnvironmentInput) (*model.Environment, error) {
	active, err := s.repo.FindActiveByName(ctx, in.Name, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check environment name: %w", err)
	}
	if active != nil {
		return nil, apperrors.ErrEnvironmentConflict
	}

	deleted, err := s.repo.FindDeletedByName(ctx, in.Name)
	if err != nil {
		return nil, fmt.Errorf("find deleted environment: %w", err)
	}
	if deleted != nil {
		applyEnvironmentInput(deleted, in)
		if err := s.repo.Restore(ctx, deleted); err != nil {
			return nil, mapEnvironmentWriteError("restore environment", err)
		}
		_ = s.cache.Delete(ctx, s.cacheKey(deleted.ID))
		slog.InfoContext(ctx, "environment restored", "environment_id", deleted.ID, "name", deleted.Name)
		return deleted, nil
	}

	env := &model.Environment{}
	applyEnvironmentInput(env, in)
	if err := s.repo.Create(ctx, env); err != nil {
		return nil, mapEnvironmentWriteError("create environment", err)
	}
	return env, nil
}

func applyEnvironmentInput(env *model.Environment, in EnvironmentInput) {
	env.Name = in.Name
	env.Type = in.Type
	env.Description = in.Description
	env.Capacity = in.Capacity
	env.Building = in.Building
	env.Floor = in.Floor
	env.IsActive = true
}

func (s *environmentService) List(ctx context.Context) ([]model.Environment, error) {
	return s.repo.List(ctx)
}

// Get returns a non-deleted environment, served from cache when possible.
func (s *environmentService) Get(ctx context.Context, id uuid.UUID) (*model.Environment, error) {
	var cached model.Environment
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	env, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEnvironmentNotFound
		}
		return nil, fmt.Errorf("find environment: %w", err)
	}

	_ = s.cache.SetJSON(ctx, s.cacheKey(id), env, environmentCacheTTL)
	return env, nil
}

func (s *environmentService) Update(ctx context.Context, id uuid.UUID, patch EnvironmentPatch) (*model.Environment, error) {
	env, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEnvironmentNotFound
		}
		return nil, fmt.Errorf("find environment: %w", err)
	}

	if patch.Name != nil && *patch.Name != env.Name {
		clash, err := s.repo.FindActiveByName(ctx, *patch.Name, env.ID)
		if err != nil {
			return nil, fmt.Errorf("check environment name: %w", err)
		}
		if clash != nil {
			return nil, apperrors.ErrEnvironmentConflict
		}
		env.Name = *patch.Name
	}
	if patch.Type != nil {
		env.Type = *patch.Type
	}
	if patch.Description != nil {
		env.Description = *patch.Description
	}
	if patch.Capacity != nil {
		env.Capacity = *patch.Capacity
	}
	if patch.Building != nil {
		env.Building = *patch.Building
	}
	if patch.Floor != nil {
		env.Floor = *patch.Floor
	}
	if patch.IsActive != nil {
		env.IsActive = *patch.IsActive
	}

	if err := s.repo.Update(ctx, env); err != nil {
		return nil, mapEnvironmentWriteError("update environment", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return env, nil
}

// Delete soft-deletes an environment. Its ledger rows are kept.
func (s *environmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrEnvironmentNotFound
		}
		return fmt.Errorf("delete environment: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

// mapEnvironmentWriteError turns a unique index violation into the name
// conflict error.
func mapEnvironmentWriteError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrEnvironmentConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
