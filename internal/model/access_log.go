package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessAction is the direction of a ledger request.
type AccessAction string

const (
	ActionCheckIn  AccessAction = "check_in"
	ActionCheckOut AccessAction = "check_out"
)

// AccessLog is one stay of a user in an environment.
// A row with a nil CheckOut is an open session; a user has at most one.
// Rows are never deleted.
type AccessLog struct {
	ID            uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserID        uuid.UUID  `json:"userId" gorm:"type:char(36);not null;index"`
	EnvironmentID uuid.UUID  `json:"environmentId" gorm:"type:char(36);not null;index"`
	CheckIn       time.Time  `json:"checkIn" gorm:"not null;index"`
	CheckOut      *time.Time `json:"checkOut" gorm:"index"`
	CreatedAt     time.Time  `json:"createdAt"`

	// Relations
	User        *User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Environment *Environment `json:"environment,omitempty" gorm:"foreignKey:EnvironmentID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *AccessLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsOpen reports whether the session has not been checked out yet.
func (a *AccessLog) IsOpen() bool {
	return a.CheckOut == nil
}

// OccupancyCount is the number of open sessions in one environment.
type OccupancyCount struct {
	EnvironmentID uuid.UUID
	Count         int64
}
