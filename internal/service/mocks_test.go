package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"occupancy/internal/model"
	"occupancy/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) FindActiveConflict(ctx context.Context, email, registration string, excludeID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, email, registration, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindDeletedMatch(ctx context.Context, email, registration string) (*model.User, error) {
	args := m.Called(ctx, email, registration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Restore(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockEnvironmentRepository is a mock implementation of EnvironmentRepository.
type MockEnvironmentRepository struct {
	mock.Mock
}

func (m *MockEnvironmentRepository) Create(ctx context.Context, env *model.Environment) error {
	return m.Called(ctx, env).Error(0)
}

func (m *MockEnvironmentRepository) Update(ctx context.Context, env *model.Environment) error {
	return m.Called(ctx, env).Error(0)
}

func (m *MockEnvironmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Environment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Environment), args.Error(1)
}

func (m *MockEnvironmentRepository) List(ctx context.Context) ([]model.Environment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Environment), args.Error(1)
}

func (m *MockEnvironmentRepository) FindActiveByName(ctx context.Context, name string, excludeID uuid.UUID) (*model.Environment, error) {
	args := m.Called(ctx, name, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Environment), args.Error(1)
}

func (m *MockEnvironmentRepository) FindDeletedByName(ctx context.Context, name string) (*model.Environment, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Environment), args.Error(1)
}

func (m *MockEnvironmentRepository) Restore(ctx context.Context, env *model.Environment) error {
	return m.Called(ctx, env).Error(0)
}

func (m *MockEnvironmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockAccessLogRepository is a mock implementation of AccessLogRepository.
// WithTransaction runs the callback against the mock itself.
type MockAccessLogRepository struct {
	mock.Mock
}

func (m *MockAccessLogRepository) Create(ctx context.Context, log *model.AccessLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockAccessLogRepository) SetCheckOut(ctx context.Context, log *model.AccessLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockAccessLogRepository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.AccessLog, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessLog), args.Error(1)
}

func (m *MockAccessLogRepository) List(ctx context.Context, filter repository.AccessLogFilter) ([]model.AccessLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessLog), args.Error(1)
}

func (m *MockAccessLogRepository) CountOpenByEnvironment(ctx context.Context) ([]model.OccupancyCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OccupancyCount), args.Error(1)
}

func (m *MockAccessLogRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AccessLogRepository) error) error {
	return fn(ctx, m)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error {
	return m.Called(ctx, tokenID, userID, email, ttl).Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uuid.UUID), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return m.Called(ctx, tokenID).Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	return m.Called(ctx, tokenID, ttl).Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// recordingRecorder counts ledger outcomes.
type recordingRecorder struct {
	checkIns   int
	checkOuts  int
	rejections map[string]int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{rejections: map[string]int{}}
}

func (r *recordingRecorder) RecordCheckIn()  { r.checkIns++ }
func (r *recordingRecorder) RecordCheckOut() { r.checkOuts++ }
func (r *recordingRecorder) RecordRejection(reason string) {
	r.rejections[reason]++
}
