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

const studentCacheTTL = 5 * time.Minute

// StudentInput carries the fields of a new student account.
type StudentInput struct {
	Name         string
	Email        string
	Password     string
	Registration string
}

// StudentPatch carries the fields to change; nil means unchanged.
type StudentPatch struct {
	Name         *string
	Email        *string
	Password     *string
	Registration *string
	IsActive     *bool
}

// StudentService manages the student directory.
type StudentService interface {
	Create(ctx context.Context, in StudentInput) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, patch StudentPatch) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type studentService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewStudentService builds a StudentService with repository and cache.
func NewStudentService(repo repository.UserRepository, cache *cache.Client) StudentService {
	return &studentService{repo: repo, cache: cache}
}

func (s *studentService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("student:%s", id.String())
}

func (s *studentService) Create(ctx context.Context, in StudentInput) (*model.User, error) {
	user, restored, err := createOrRestoreStudent(ctx, s.repo, in)
	if err != nil {
		return nil, err
	}
	if restored {
		_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	}
	return user, nil
}

// createOrRestoreStudent enforces identity uniqueness among active users.
// A soft-deleted user sharing the email or registration is brought back with
// the new fields and password; otherwise a new student row is inserted.
func createOrRestoreStudent(ctx context.Context, repo repository.UserRepository, in StudentInput) (*model.User, bool, error) {
	clash, err := repo.FindActiveConflict(ctx, in.Email, in.Registration, uuid.Nil)
	if err != nil {
		return nil, false, fmt.Errorf("check student identity: %w", err)
	}
	if clash != nil {
		return nil, false, apperrors.ErrStudentConflict
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, false, err
	}

	deleted, err := repo.FindDeletedMatch(ctx, in.Email, in.Registration)
	if err != nil {
		return nil, false, fmt.Errorf("find deleted student: %w", err)
	}
	if deleted != nil {
		deleted.Name = in.Name
		deleted.Email = in.Email
		deleted.Registration = in.Registration
		deleted.PasswordHash = hash
		deleted.Role = model.RoleStudent
		deleted.IsActive = true
		if err := repo.Restore(ctx, deleted); err != nil {
			return nil, false, mapStudentWriteError("restore student", err)
		}
		slog.InfoContext(ctx, "student restored", "user_id", deleted.ID)
		return deleted, true, nil
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		Registration: in.Registration,
		PasswordHash: hash,
		Role:         model.RoleStudent,
		IsActive:     true,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, false, mapStudentWriteError("create student", err)
	}
	return user, false, nil
}

func (s *studentService) List(ctx context.Context) ([]model.User, error) {
	return s.repo.ListByRole(ctx, model.RoleStudent)
}

func (s *studentService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.findStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = s.cache.SetJSON(ctx, s.cacheKey(id), user, studentCacheTTL)
	return user, nil
}

func (s *studentService) findStudent(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	if user.Role != model.RoleStudent {
		return nil, apperrors.ErrStudentNotFound
	}
	return user, nil
}

func (s *studentService) Update(ctx context.Context, id uuid.UUID, patch StudentPatch) (*model.User, error) {
	user, err := s.findStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	email, registration := user.Email, user.Registration
	if patch.Email != nil {
		email = *patch.Email
	}
	if patch.Registration != nil {
		registration = *patch.Registration
	}
	if email != user.Email || registration != user.Registration {
		clash, err := s.repo.FindActiveConflict(ctx, email, registration, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check student identity: %w", err)
		}
		if clash != nil {
			return nil, apperrors.ErrStudentConflict
		}
	}
	user.Email = email
	user.Registration = registration

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, mapStudentWriteError("update student", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return user, nil
}

func (s *studentService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findStudent(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrStudentNotFound
		}
		return fmt.Errorf("delete student: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

func mapStudentWriteError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrStudentConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
