package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnvironmentType classifies a physical space.
type EnvironmentType string

const (
	EnvironmentClassroom  EnvironmentType = "classroom"
	EnvironmentLaboratory EnvironmentType = "laboratory"
	EnvironmentStudyRoom  EnvironmentType = "study_room"
)

// Valid reports whether t is one of the known environment types.
func (t EnvironmentType) Valid() bool {
	switch t {
	case EnvironmentClassroom, EnvironmentLaboratory, EnvironmentStudyRoom:
		return true
	}
	return false
}

// Environment is a room that people check in to and out of.
type Environment struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string          `json:"name" gorm:"size:255;not null;index"`
	Type        EnvironmentType `json:"type" gorm:"type:varchar(20);not null"`
	Description string          `json:"description,omitempty" gorm:"size:500"`
	Capacity    int             `json:"capacity" gorm:"not null"`
	Building    string          `json:"building,omitempty" gorm:"size:100"`
	Floor       string          `json:"floor,omitempty" gorm:"size:50"`
	IsActive    bool            `json:"isActive" gorm:"default:true"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (e *Environment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
