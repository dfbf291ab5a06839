package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"occupancy/internal/model"
)

// EnvironmentRepository defines environment persistence operations.
type EnvironmentRepository interface {
	Create(ctx context.Context, env *model.Environment) error
	Update(ctx context.Context, env *model.Environment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Environment, error)
	List(ctx context.Context) ([]model.Environment, error)
	FindActiveByName(ctx context.Context, name string, excludeID uuid.UUID) (*model.Environment, error)
	FindDeletedByName(ctx context.Context, name string) (*model.Environment, error)
	Restore(ctx context.Context, env *model.Environment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type environmentRepository struct {
	db *gorm.DB
}

// NewEnvironmentRepository creates a new environment repository.
func NewEnvironmentRepository(db *gorm.DB) EnvironmentRepository {
	return &environmentRepository{db: db}
}

// Create creates a new environment.
func (r *environmentRepository) Create(ctx context.Context, env *model.Environment) error {
	return r.db.WithContext(ctx).Create(env).Error
}

// Update saves every field of an existing environment.
func (r *environmentRepository) Update(ctx context.Context, env *model.Environment) error {
	return r.db.WithContext(ctx).Save(env).Error
}

// FindByID finds a non-deleted environment by ID.
func (r *environmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Environment, error) {
	var env model.Environment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&env).Error; err != nil {
		return nil, err
	}
	return &env, nil
}

// List lists all non-deleted environments ordered by name.
func (r *environmentRepository) List(ctx context.Context) ([]model.Environment, error) {
	var envs []model.Environment
	if err := r.db.WithContext(ctx).Order("name").Find(&envs).Error; err != nil {
		return nil, err
	}
	return envs, nil
}

// FindActiveByName returns the non-deleted environment named name other than
// excludeID, or nil.
func (r *environmentRepository) FindActiveByName(ctx context.Context, name string, excludeID uuid.UUID) (*model.Environment, error) {
	var env model.Environment
	q := r.db.WithContext(ctx).Where("name = ?", name)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.First(&env).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// FindDeletedByName returns the most recently deleted environment named name, or nil.
func (r *environmentRepository) FindDeletedByName(ctx context.Context, name string) (*model.Environment, error) {
	var env model.Environment
	err := r.db.WithContext(ctx).Unscoped().
		Where("name = ? AND deleted_at IS NOT NULL", name).
		Order("deleted_at DESC").
		First(&env).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// Restore clears the soft-delete mark and persists every field of env.
func (r *environmentRepository) Restore(ctx context.Context, env *model.Environment) error {
	env.DeletedAt = gorm.DeletedAt{}
	return r.db.WithContext(ctx).Unscoped().Save(env).Error
}

// Delete soft-deletes an environment.
func (r *environmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Environment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
