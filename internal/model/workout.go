package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkoutStatus represents the lifecycle status of a workout.
type WorkoutStatus string

const (
	WorkoutStatusActive    WorkoutStatus = "active"
	WorkoutStatusArchived  WorkoutStatus = "archived"
	WorkoutStatusCompleted WorkoutStatus = "completed"
)

// Valid reports whether s is a known status.
func (s WorkoutStatus) Valid() bool {
	switch s {
	case WorkoutStatusActive, WorkoutStatusArchived, WorkoutStatusCompleted:
		return true
	default:
		return false
	}
}

// Workout is a routine owned by a customer. It is created either by the
// owner or by a coach assigned to the owner.
type Workout struct {
	ID          uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	OwnerID     uuid.UUID      `json:"owner_id" gorm:"type:char(36);not null;index:idx_workout_owner_status"`
	CreatedByID uuid.UUID      `json:"created_by_id" gorm:"type:char(36);not null;index"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Notes       string         `json:"notes,omitempty" gorm:"type:text"`
	Status      WorkoutStatus  `json:"status" gorm:"type:varchar(20);not null;default:'active';index:idx_workout_owner_status"`
	ArchivedAt  *time.Time     `json:"archived_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Owner     User `json:"-" gorm:"foreignKey:OwnerID"`
	CreatedBy User `json:"-" gorm:"foreignKey:CreatedByID"`
}

// BeforeCreate sets UUID before creating the record.
func (w *Workout) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = WorkoutStatusActive
	}
	return nil
}

// SelfCreated reports whether the owner created the workout themself.
func (w *Workout) SelfCreated() bool {
	return w.CreatedByID == w.OwnerID
}

// CountsTowardLimit reports whether the workout counts against the owner's
// creation limit.
func (w *Workout) CountsTowardLimit() bool {
	return w.Status == WorkoutStatusActive && w.SelfCreated()
}
