package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CoachAssignment links a coach to a customer they train.
type CoachAssignment struct {
	ID         uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	CoachID    uuid.UUID `json:"coach_id" gorm:"type:char(36);not null;uniqueIndex:idx_coach_customer"`
	CustomerID uuid.UUID `json:"customer_id" gorm:"type:char(36);not null;uniqueIndex:idx_coach_customer;index"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Coach    User `json:"-" gorm:"foreignKey:CoachID"`
	Customer User `json:"-" gorm:"foreignKey:CustomerID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *CoachAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
