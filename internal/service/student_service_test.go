package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "occupancy/internal/errors"
	"occupancy/internal/model"
)

func anaInput() StudentInput {
	return StudentInput{
		Name:         "Ana Souza",
		Email:        "ana@example.com",
		Password:     "secret123",
		Registration: "2024001",
	}
}

func TestStudentService_Create(t *testing.T) {
	deletedID := uuid.New()

	tests := []struct {
		name          string
		setupMock     func(*MockUserRepository)
		expectedError error
		expectedID    uuid.UUID
	}{
		{
			name: "new student",
			setupMock: func(m *MockUserRepository) {
				m.On("FindActiveConflict", mock.Anything, "ana@example.com", "2024001", uuid.Nil).Return(nil, nil)
				m.On("FindDeletedMatch", mock.Anything, "ana@example.com", "2024001").Return(nil, nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Role == model.RoleStudent && u.IsActive && u.PasswordHash != "secret123"
				})).Return(nil)
			},
		},
		{
			name: "email or registration taken",
			setupMock: func(m *MockUserRepository) {
				m.On("FindActiveConflict", mock.Anything, "ana@example.com", "2024001", uuid.Nil).
					Return(&model.User{ID: uuid.New()}, nil)
			},
			expectedError: apperrors.ErrStudentConflict,
		},
		{
			name: "restores deleted student",
			setupMock: func(m *MockUserRepository) {
				m.On("FindActiveConflict", mock.Anything, "ana@example.com", "2024001", uuid.Nil).Return(nil, nil)
				m.On("FindDeletedMatch", mock.Anything, "ana@example.com", "2024001").
					Return(&model.User{ID: deletedID, Name: "Old Name", Email: "ana@example.com"}, nil)
				m.On("Restore", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.ID == deletedID && u.Name == "Ana Souza" && u.IsActive
				})).Return(nil)
			},
			expectedID: deletedID,
		},
		{
			name: "unique index race",
			setupMock: func(m *MockUserRepository) {
				m.On("FindActiveConflict", mock.Anything, mock.Anything, mock.Anything, uuid.Nil).Return(nil, nil)
				m.On("FindDeletedMatch", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
				m.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrStudentConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setupMock(repo)

			user, err := NewStudentService(repo, nil).Create(context.Background(), anaInput())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
				if tt.expectedID != uuid.Nil {
					assert.Equal(t, tt.expectedID, user.ID)
				}
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestStudentService_Get(t *testing.T) {
	repo := new(MockUserRepository)
	student := &model.User{ID: uuid.New(), Role: model.RoleStudent}
	admin := &model.User{ID: uuid.New(), Role: model.RoleAdmin}
	missing := uuid.New()
	repo.On("FindByID", mock.Anything, student.ID).Return(student, nil)
	repo.On("FindByID", mock.Anything, admin.ID).Return(admin, nil)
	repo.On("FindByID", mock.Anything, missing).Return(nil, gorm.ErrRecordNotFound)
	svc := NewStudentService(repo, nil)

	got, err := svc.Get(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.ID, got.ID)

	_, err = svc.Get(context.Background(), admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)

	_, err = svc.Get(context.Background(), missing)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestStudentService_Update(t *testing.T) {
	id := uuid.New()
	current := func() *model.User {
		return &model.User{ID: id, Name: "Ana", Email: "ana@example.com", Registration: "2024001", Role: model.RoleStudent, PasswordHash: "old"}
	}

	t.Run("changes email and password", func(t *testing.T) {
		email, password := "ana.souza@example.com", "newpass99"
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, id).Return(current(), nil)
		repo.On("FindActiveConflict", mock.Anything, email, "2024001", id).Return(nil, nil)
		repo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

		user, err := NewStudentService(repo, nil).Update(context.Background(), id, StudentPatch{Email: &email, Password: &password})

		require.NoError(t, err)
		assert.Equal(t, email, user.Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)))
	})

	t.Run("registration collides", func(t *testing.T) {
		registration := "2024002"
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, id).Return(current(), nil)
		repo.On("FindActiveConflict", mock.Anything, "ana@example.com", registration, id).
			Return(&model.User{ID: uuid.New()}, nil)

		_, err := NewStudentService(repo, nil).Update(context.Background(), id, StudentPatch{Registration: &registration})

		assert.ErrorIs(t, err, apperrors.ErrStudentConflict)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("empty password keeps hash", func(t *testing.T) {
		name, empty := "Ana S.", ""
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, id).Return(current(), nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)

		user, err := NewStudentService(repo, nil).Update(context.Background(), id, StudentPatch{Name: &name, Password: &empty})

		require.NoError(t, err)
		assert.Equal(t, "old", user.PasswordHash)
		assert.Equal(t, name, user.Name)
	})
}

func TestStudentService_Delete(t *testing.T) {
	repo := new(MockUserRepository)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Role: model.RoleStudent}, nil)
	repo.On("Delete", mock.Anything, id).Return(nil)

	require.NoError(t, NewStudentService(repo, nil).Delete(context.Background(), id))
	repo.AssertExpectations(t)
}
