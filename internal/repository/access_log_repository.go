package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"occupancy/internal/model"
)

// AccessLogFilter narrows ListAccessLogs. Zero values mean "any".
type AccessLogFilter struct {
	UserID        uuid.UUID
	EnvironmentID uuid.UUID
	OpenOnly      bool
	Limit         int
}

// AccessLogRepository defines ledger persistence operations.
type AccessLogRepository interface {
	Create(ctx context.Context, log *model.AccessLog) error
	SetCheckOut(ctx context.Context, log *model.AccessLog) error
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.AccessLog, error)
	List(ctx context.Context, filter AccessLogFilter) ([]model.AccessLog, error)
	CountOpenByEnvironment(ctx context.Context) ([]model.OccupancyCount, error)
	// WithTransaction runs fn against a repository bound to one transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccessLogRepository) error) error
}

type accessLogRepository struct {
	db *gorm.DB
}

// NewAccessLogRepository creates a new access log repository.
func NewAccessLogRepository(db *gorm.DB) AccessLogRepository {
	return &accessLogRepository{db: db}
}

// Create inserts a new ledger row.
func (r *accessLogRepository) Create(ctx context.Context, log *model.AccessLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// SetCheckOut persists the check-out timestamp of an open row. It fails with
// gorm.ErrRecordNotFound when the row was closed concurrently.
func (r *accessLogRepository) SetCheckOut(ctx context.Context, log *model.AccessLog) error {
	res := r.db.WithContext(ctx).Model(&model.AccessLog{}).
		Where("id = ? AND check_out IS NULL", log.ID).
		Update("check_out", log.CheckOut)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindOpenByUser returns the user's open session with a row lock, or nil
// when none exists.
func (r *accessLogRepository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.AccessLog, error) {
	var log model.AccessLog
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND check_out IS NULL", userID).
		Order("check_in DESC").
		First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// List returns ledger rows newest first with user and environment attached,
// including soft-deleted ones.
func (r *accessLogRepository) List(ctx context.Context, filter AccessLogFilter) ([]model.AccessLog, error) {
	withDeleted := func(db *gorm.DB) *gorm.DB { return db.Unscoped() }

	q := r.db.WithContext(ctx).
		Preload("User", withDeleted).
		Preload("Environment", withDeleted).
		Order("check_in DESC")
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.EnvironmentID != uuid.Nil {
		q = q.Where("environment_id = ?", filter.EnvironmentID)
	}
	if filter.OpenOnly {
		q = q.Where("check_out IS NULL")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var logs []model.AccessLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CountOpenByEnvironment groups open sessions by environment.
func (r *accessLogRepository) CountOpenByEnvironment(ctx context.Context) ([]model.OccupancyCount, error) {
	var counts []model.OccupancyCount
	err := r.db.WithContext(ctx).Model(&model.AccessLog{}).
		Select("environment_id, COUNT(*) AS count").
		Where("check_out IS NULL").
		Group("environment_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// WithTransaction executes a function within a database transaction.
func (r *accessLogRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccessLogRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &accessLogRepository{db: tx})
	})
}
