package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"occupancy/internal/model"
)

// UserRepository defines user persistence operations. Finders ignore
// soft-deleted rows unless their name says otherwise.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	FindActiveConflict(ctx context.Context, email, registration string, excludeID uuid.UUID) (*model.User, error)
	FindDeletedMatch(ctx context.Context, email, registration string) (*model.User, error)
	Restore(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// identityScope matches users by email or, when given, registration.
func identityScope(email, registration string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if registration == "" {
			return db.Where("email = ?", email)
		}
		return db.Where("email = ? OR registration = ?", email, registration)
	}
}

// FindActiveConflict returns a non-deleted user other than excludeID that
// shares the email or registration, or nil when there is none.
func (r *userRepository) FindActiveConflict(ctx context.Context, email, registration string, excludeID uuid.UUID) (*model.User, error) {
	var user model.User
	q := r.db.WithContext(ctx).Scopes(identityScope(email, registration))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindDeletedMatch returns the most recently deleted user sharing the email
// or registration, or nil when there is none.
func (r *userRepository) FindDeletedMatch(ctx context.Context, email, registration string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL").
		Scopes(identityScope(email, registration)).
		Order("deleted_at DESC").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Restore clears the soft-delete mark and persists every field of user.
func (r *userRepository) Restore(ctx context.Context, user *model.User) error {
	user.DeletedAt = gorm.DeletedAt{}
	return r.db.WithContext(ctx).Unscoped().Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
