package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "occupancy/internal/errors"
	"occupancy/internal/model"
	"occupancy/internal/repository"
)

var ledgerEpoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type ledgerFixture struct {
	logs     *MockAccessLogRepository
	users    *MockUserRepository
	envs     *MockEnvironmentRepository
	clock    *clockwork.FakeClock
	recorder *recordingRecorder
	svc      AccessService

	student model.User
	env     model.Environment
	admin   Caller
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		logs:     new(MockAccessLogRepository),
		users:    new(MockUserRepository),
		envs:     new(MockEnvironmentRepository),
		clock:    clockwork.NewFakeClockAt(ledgerEpoch),
		recorder: newRecordingRecorder(),
		student:  model.User{ID: uuid.New(), Name: "Ana", Role: model.RoleStudent, IsActive: true},
		env:      model.Environment{ID: uuid.New(), Name: "Lab 1", Capacity: 10, IsActive: true},
		admin:    Caller{UserID: uuid.New(), Role: model.RoleAdmin},
	}
	f.svc = NewAccessService(f.logs, f.users, f.envs, f.clock, f.recorder)
	f.users.On("FindByID", mock.Anything, f.student.ID).Return(&f.student, nil).Maybe()
	f.envs.On("FindByID", mock.Anything, f.env.ID).Return(&f.env, nil).Maybe()
	return f
}

func TestRegisterAccess_CheckIn(t *testing.T) {
	f := newLedgerFixture(t)
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(nil, nil)
	f.logs.On("Create", mock.Anything, mock.AnythingOfType("*model.AccessLog")).Return(nil)

	log, err := f.svc.RegisterAccess(context.Background(), f.admin, f.student.ID, f.env.ID, model.ActionCheckIn)

	require.NoError(t, err)
	assert.Equal(t, f.student.ID, log.UserID)
	assert.Equal(t, f.env.ID, log.EnvironmentID)
	assert.Equal(t, ledgerEpoch, log.CheckIn)
	assert.True(t, log.IsOpen())
	assert.Equal(t, "Lab 1", log.Environment.Name)
	assert.Equal(t, 1, f.recorder.checkIns)
	f.logs.AssertExpectations(t)
}

func TestRegisterAccess_StudentChecksInThemself(t *testing.T) {
	f := newLedgerFixture(t)
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(nil, nil)
	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)

	self := Caller{UserID: f.student.ID, Role: model.RoleStudent}
	_, err := f.svc.RegisterAccess(context.Background(), self, f.student.ID, f.env.ID, model.ActionCheckIn)

	assert.NoError(t, err)
}

func TestRegisterAccess_DoubleCheckInAnywhereFails(t *testing.T) {
	f := newLedgerFixture(t)
	other := model.Environment{ID: uuid.New(), Name: "Library", Capacity: 5, IsActive: true}
	f.envs.On("FindByID", mock.Anything, other.ID).Return(&other, nil)
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(&model.AccessLog{
		ID:            uuid.New(),
		UserID:        f.student.ID,
		EnvironmentID: f.env.ID,
		CheckIn:       ledgerEpoch,
	}, nil)

	_, err := f.svc.RegisterAccess(context.Background(), f.admin, f.student.ID, other.ID, model.ActionCheckIn)

	assert.ErrorIs(t, err, apperrors.ErrActiveSessionExists)
	assert.Equal(t, 1, f.recorder.rejections["active_session"])
	f.logs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterAccess_DuplicateKeyIsDoubleCheckIn(t *testing.T) {
	f := newLedgerFixture(t)
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(nil, nil)
	f.logs.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := f.svc.RegisterAccess(context.Background(), f.admin, f.student.ID, f.env.ID, model.ActionCheckIn)

	assert.ErrorIs(t, err, apperrors.ErrActiveSessionExists)
}

func TestRegisterAccess_CheckOutWithoutSession(t *testing.T) {
	f := newLedgerFixture(t)
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(nil, nil)

	_, err := f.svc.RegisterAccess(context.Background(), f.admin, f.student.ID, f.env.ID, model.ActionCheckOut)

	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)
	assert.Equal(t, 1, f.recorder.rejections["no_active_session"])
}

func TestRegisterAccess_CheckOutOtherEnvironment(t *testing.T) {
	f := newLedgerFixture(t)
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(&model.AccessLog{
		ID:            uuid.New(),
		UserID:        f.student.ID,
		EnvironmentID: f.env.ID,
		CheckIn:       ledgerEpoch,
	}, nil)

	_, err := f.svc.RegisterAccess(context.Background(), f.admin, f.student.ID, uuid.New(), model.ActionCheckOut)

	assert.ErrorIs(t, err, apperrors.ErrEnvironmentMismatch)
	f.logs.AssertNotCalled(t, "SetCheckOut", mock.Anything, mock.Anything)
}

func TestRegisterAccess_CheckOut(t *testing.T) {
	f := newLedgerFixture(t)
	open := &model.AccessLog{
		ID:            uuid.New(),
		UserID:        f.student.ID,
		EnvironmentID: f.env.ID,
		CheckIn:       ledgerEpoch,
	}
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(open, nil)
	f.logs.On("SetCheckOut", mock.Anything, open).Return(nil)
	f.clock.Advance(90 * time.Minute)

	log, err := f.svc.RegisterAccess(context.Background(), f.admin, f.student.ID, f.env.ID, model.ActionCheckOut)

	require.NoError(t, err)
	require.NotNil(t, log.CheckOut)
	assert.Equal(t, ledgerEpoch.Add(90*time.Minute), *log.CheckOut)
	assert.Equal(t, 1, f.recorder.checkOuts)
	// The environment is not looked up on check-out.
	f.envs.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestRegisterAccess_CheckOutRaceLost(t *testing.T) {
	f := newLedgerFixture(t)
	open := &model.AccessLog{ID: uuid.New(), UserID: f.student.ID, EnvironmentID: f.env.ID}
	f.logs.On("FindOpenByUser", mock.Anything, f.student.ID).Return(open, nil)
	f.logs.On("SetCheckOut", mock.Anything, open).Return(gorm.ErrRecordNotFound)

	_, err := f.svc.RegisterAccess(context.Background(), f.admin, f.student.ID, f.env.ID, model.ActionCheckOut)

	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)
}

func TestRegisterAccess_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *ledgerFixture) (Caller, uuid.UUID, uuid.UUID, model.AccessAction)
		wantErr error
	}{
		{
			name: "unknown action",
			setup: func(f *ledgerFixture) (Caller, uuid.UUID, uuid.UUID, model.AccessAction) {
				return f.admin, f.student.ID, f.env.ID, model.AccessAction("teleport")
			},
			wantErr: apperrors.ErrInvalidAction,
		},
		{
			name: "student acting for someone else",
			setup: func(f *ledgerFixture) (Caller, uuid.UUID, uuid.UUID, model.AccessAction) {
				return Caller{UserID: uuid.New(), Role: model.RoleStudent}, f.student.ID, f.env.ID, model.ActionCheckIn
			},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name: "unknown student",
			setup: func(f *ledgerFixture) (Caller, uuid.UUID, uuid.UUID, model.AccessAction) {
				ghost := uuid.New()
				f.users.On("FindByID", mock.Anything, ghost).Return(nil, gorm.ErrRecordNotFound)
				return f.admin, ghost, f.env.ID, model.ActionCheckIn
			},
			wantErr: apperrors.ErrStudentNotFound,
		},
		{
			name: "unknown environment",
			setup: func(f *ledgerFixture) (Caller, uuid.UUID, uuid.UUID, model.AccessAction) {
				gone := uuid.New()
				f.envs.On("FindByID", mock.Anything, gone).Return(nil, gorm.ErrRecordNotFound)
				return f.admin, f.student.ID, gone, model.ActionCheckIn
			},
			wantErr: apperrors.ErrEnvironmentNotFound,
		},
		{
			name: "inactive environment",
			setup: func(f *ledgerFixture) (Caller, uuid.UUID, uuid.UUID, model.AccessAction) {
				closed := model.Environment{ID: uuid.New(), IsActive: false}
				f.envs.On("FindByID", mock.Anything, closed.ID).Return(&closed, nil)
				return f.admin, f.student.ID, closed.ID, model.ActionCheckIn
			},
			wantErr: apperrors.ErrEnvironmentInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			caller, studentID, envID, action := tt.setup(f)

			log, err := f.svc.RegisterAccess(context.Background(), caller, studentID, envID, action)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, log)
			f.logs.AssertNotCalled(t, "FindOpenByUser", mock.Anything, mock.Anything)
		})
	}
}

func TestListAccess_StudentSeesOnlyOwnRows(t *testing.T) {
	f := newLedgerFixture(t)
	self := Caller{UserID: f.student.ID, Role: model.RoleStudent}
	f.logs.On("List", mock.Anything, repository.AccessLogFilter{UserID: f.student.ID, OpenOnly: true}).
		Return([]model.AccessLog{{ID: uuid.New()}}, nil)

	logs, err := f.svc.ListAccess(context.Background(), self, AccessFilter{StudentID: uuid.New(), OpenOnly: true})

	require.NoError(t, err)
	assert.Len(t, logs, 1)
	f.logs.AssertExpectations(t)
}

func TestListAccess_AdminFilters(t *testing.T) {
	f := newLedgerFixture(t)
	filter := AccessFilter{StudentID: f.student.ID, EnvironmentID: f.env.ID, Limit: 50}
	f.logs.On("List", mock.Anything, repository.AccessLogFilter{
		UserID:        f.student.ID,
		EnvironmentID: f.env.ID,
		Limit:         50,
	}).Return([]model.AccessLog{}, nil)

	_, err := f.svc.ListAccess(context.Background(), f.admin, filter)

	require.NoError(t, err)
	f.logs.AssertExpectations(t)
}

// memLedger is an in-memory AccessLogRepository whose single operations are
// atomic but whose transactions are not, so it exposes read-then-write races.
type memLedger struct {
	mu   sync.Mutex
	rows []model.AccessLog
}

func (m *memLedger) Create(_ context.Context, log *model.AccessLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uuid.New()
	m.rows = append(m.rows, *log)
	return nil
}

func (m *memLedger) SetCheckOut(_ context.Context, log *model.AccessLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == log.ID && m.rows[i].CheckOut == nil {
			m.rows[i].CheckOut = log.CheckOut
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memLedger) FindOpenByUser(_ context.Context, userID uuid.UUID) (*model.AccessLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.UserID == userID && row.CheckOut == nil {
			r := row
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memLedger) List(context.Context, repository.AccessLogFilter) ([]model.AccessLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AccessLog(nil), m.rows...), nil
}

func (m *memLedger) CountOpenByEnvironment(context.Context) ([]model.OccupancyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[uuid.UUID]int64{}
	for _, row := range m.rows {
		if row.CheckOut == nil {
			counts[row.EnvironmentID]++
		}
	}
	out := make([]model.OccupancyCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, model.OccupancyCount{EnvironmentID: id, Count: n})
	}
	return out, nil
}

func (m *memLedger) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AccessLogRepository) error) error {
	return fn(ctx, m)
}

func TestRegisterAccess_ConcurrentCheckInsOpenOneSession(t *testing.T) {
	f := newLedgerFixture(t)
	ledger := &memLedger{}
	svc := NewAccessService(ledger, f.users, f.envs, clockwork.NewRealClock(), nil)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegisterAccess(context.Background(), f.admin, f.student.ID, f.env.ID, model.ActionCheckIn)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrActiveSessionExists)
	}
	assert.Equal(t, 1, succeeded)

	counts, err := ledger.CountOpenByEnvironment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.OccupancyCount{{EnvironmentID: f.env.ID, Count: 1}}, counts)
	assert.Zero(t, svc.(*accessService).heldLocks(), "student locks are released after use")
}

func TestLockStudent_DropsIdleEntries(t *testing.T) {
	svc := NewAccessService(nil, nil, nil, clockwork.NewRealClock(), nil).(*accessService)
	a, b := uuid.New(), uuid.New()

	unlockA := svc.lockStudent(a)
	unlockB := svc.lockStudent(b)
	assert.Equal(t, 2, svc.heldLocks())

	acquired := make(chan struct{})
	go func() {
		unlock := svc.lockStudent(a)
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a lock that was still held")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-acquired
	unlockB()

	require.Eventually(t, func() bool { return svc.heldLocks() == 0 }, time.Second, time.Millisecond)
}

func TestRegisterAccess_FullCycle(t *testing.T) {
	f := newLedgerFixture(t)
	ledger := &memLedger{}
	svc := NewAccessService(ledger, f.users, f.envs, f.clock, nil)
	ctx := context.Background()

	_, err := svc.RegisterAccess(ctx, f.admin, f.student.ID, f.env.ID, model.ActionCheckOut)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	_, err = svc.RegisterAccess(ctx, f.admin, f.student.ID, f.env.ID, model.ActionCheckIn)
	require.NoError(t, err)

	_, err = svc.RegisterAccess(ctx, f.admin, f.student.ID, f.env.ID, model.ActionCheckIn)
	assert.ErrorIs(t, err, apperrors.ErrActiveSessionExists)

	_, err = svc.RegisterAccess(ctx, f.admin, f.student.ID, f.env.ID, model.ActionCheckOut)
	require.NoError(t, err)

	// Closed session frees the student to check in again.
	_, err = svc.RegisterAccess(ctx, f.admin, f.student.ID, f.env.ID, model.ActionCheckIn)
	require.NoError(t, err)

	rows, _ := ledger.List(ctx, repository.AccessLogFilter{})
	assert.Len(t, rows, 2)
}
