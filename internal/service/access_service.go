package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	apperrors "occupancy/internal/errors"
	"occupancy/internal/model"
	"occupancy/internal/repository"
)

// Caller identifies who issues a request.
type Caller struct {
	UserID uuid.UUID
	Role   model.Role
}

// AccessRecorder receives ledger outcomes, typically for metrics.
type AccessRecorder interface {
	RecordCheckIn()
	RecordCheckOut()
	RecordRejection(reason string)
}

type noopRecorder struct{}

func (noopRecorder) RecordCheckIn()         {}
func (noopRecorder) RecordCheckOut()        {}
func (noopRecorder) RecordRejection(string) {}

// AccessFilter narrows ListAccess.
type AccessFilter struct {
	StudentID     uuid.UUID
	EnvironmentID uuid.UUID
	OpenOnly      bool
	Limit         int
}

// AccessService is the session ledger.
type AccessService interface {
	RegisterAccess(ctx context.Context, caller Caller, studentID, environmentID uuid.UUID, action model.AccessAction) (*model.AccessLog, error)
	ListAccess(ctx context.Context, caller Caller, filter AccessFilter) ([]model.AccessLog, error)
}

type accessService struct {
	logRepo  repository.AccessLogRepository
	userRepo repository.UserRepository
	envRepo  repository.EnvironmentRepository
	clock    clockwork.Clock
	recorder AccessRecorder
	// Per-student locks, reference counted so an entry only lives while
	// someone holds or waits for it.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*studentLock
}

type studentLock struct {
	mu   sync.Mutex
	refs int
}

// NewAccessService creates the ledger. A nil recorder disables outcome reporting.
func NewAccessService(
	logRepo repository.AccessLogRepository,
	userRepo repository.UserRepository,
	envRepo repository.EnvironmentRepository,
	clock clockwork.Clock,
	recorder AccessRecorder,
) AccessService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &accessService{
		logRepo:  logRepo,
		userRepo: userRepo,
		envRepo:  envRepo,
		clock:    clock,
		recorder: recorder,
		locks:    make(map[uuid.UUID]*studentLock),
	}
}

// lockStudent serializes ledger writes for one student. The returned func
// releases the lock and drops the entry once nobody else is waiting on it.
func (s *accessService) lockStudent(studentID uuid.UUID) func() {
	s.locksMu.Lock()
	l, ok := s.locks[studentID]
	if !ok {
		l = &studentLock{}
		s.locks[studentID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, studentID)
		}
		s.locksMu.Unlock()
	}
}

func (s *accessService) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// RegisterAccess checks a student in or out.
//
// A student holds at most one open session system-wide, so check-in fails
// while any session is open. Check-out must name the environment of that
// open session.
func (s *accessService) RegisterAccess(ctx context.Context, caller Caller, studentID, environmentID uuid.UUID, action model.AccessAction) (*model.AccessLog, error) {
	if action != model.ActionCheckIn && action != model.ActionCheckOut {
		return nil, apperrors.ErrInvalidAction
	}
	if caller.Role != model.RoleAdmin && caller.UserID != studentID {
		s.recorder.RecordRejection("forbidden")
		return nil, apperrors.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}

	// Environments are only required to exist on check-in; a session opened
	// before the environment was deleted can still be closed.
	var env *model.Environment
	if action == model.ActionCheckIn {
		env, err = s.envRepo.FindByID(ctx, environmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrEnvironmentNotFound
			}
			return nil, fmt.Errorf("find environment: %w", err)
		}
		if !env.IsActive {
			s.recorder.RecordRejection("environment_inactive")
			return nil, apperrors.ErrEnvironmentInactive
		}
	}

	unlock := s.lockStudent(studentID)
	defer unlock()

	var result *model.AccessLog
	err = s.logRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.AccessLogRepository) error {
		open, err := repo.FindOpenByUser(ctx, studentID)
		if err != nil {
			return fmt.Errorf("find open session: %w", err)
		}

		if action == model.ActionCheckIn {
			if open != nil {
				return apperrors.ErrActiveSessionExists
			}
			log := &model.AccessLog{
				UserID:        studentID,
				EnvironmentID: environmentID,
				CheckIn:       s.clock.Now(),
			}
			if err := repo.Create(ctx, log); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperrors.ErrActiveSessionExists
				}
				return fmt.Errorf("create access log: %w", err)
			}
			result = log
			return nil
		}

		if open == nil {
			return apperrors.ErrNoActiveSession
		}
		if open.EnvironmentID != environmentID {
			return apperrors.ErrEnvironmentMismatch
		}
		now := s.clock.Now()
		open.CheckOut = &now
		if err := repo.SetCheckOut(ctx, open); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNoActiveSession
			}
			return fmt.Errorf("close access log: %w", err)
		}
		result = open
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	result.User = user
	result.Environment = env
	if action == model.ActionCheckIn {
		s.recorder.RecordCheckIn()
	} else {
		s.recorder.RecordCheckOut()
	}
	slog.InfoContext(ctx, "access registered",
		"action", action,
		"user_id", studentID,
		"environment_id", environmentID,
		"access_log_id", result.ID,
	)
	return result, nil
}

func (s *accessService) recordFailure(err error) {
	switch {
	case errors.Is(err, apperrors.ErrActiveSessionExists):
		s.recorder.RecordRejection("active_session")
	case errors.Is(err, apperrors.ErrNoActiveSession):
		s.recorder.RecordRejection("no_active_session")
	case errors.Is(err, apperrors.ErrEnvironmentMismatch):
		s.recorder.RecordRejection("environment_mismatch")
	}
}

// ListAccess returns ledger history newest first. Students only ever see
// their own rows.
func (s *accessService) ListAccess(ctx context.Context, caller Caller, filter AccessFilter) ([]model.AccessLog, error) {
	repoFilter := repository.AccessLogFilter{
		UserID:        filter.StudentID,
		EnvironmentID: filter.EnvironmentID,
		OpenOnly:      filter.OpenOnly,
		Limit:         filter.Limit,
	}
	if caller.Role != model.RoleAdmin {
		repoFilter.UserID = caller.UserID
	}

	logs, err := s.logRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return logs, nil
}
