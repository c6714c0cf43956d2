package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkoutAction is a state change recorded in the workout log.
type WorkoutAction string

const (
	WorkoutActionCreated   WorkoutAction = "created"
	WorkoutActionArchived  WorkoutAction = "archived"
	WorkoutActionCompleted WorkoutAction = "completed"
	WorkoutActionRestored  WorkoutAction = "restored"
	WorkoutActionRejected  WorkoutAction = "rejected"
)

// WorkoutLog represents an audit entry for a workout change.
// Rejected creations are logged too, with an empty WorkoutID.
type WorkoutLog struct {
	ID        uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	WorkoutID uuid.UUID     `json:"workout_id" gorm:"type:char(36);index"`
	ActorID   uuid.UUID     `json:"actor_id" gorm:"type:char(36);not null;index"`
	Action    WorkoutAction `json:"action" gorm:"type:varchar(20);not null;index"`
	Message   string        `json:"message,omitempty" gorm:"type:text"`
	CreatedAt time.Time     `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (l *WorkoutLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
