package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"coachgate/internal/roles"
)

// User represents an authenticated user in the system. A user may hold any
// combination of admin, coach and customer roles.
type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Email        string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Roles        roles.List     `json:"roles" gorm:"type:varchar(64);not null;default:'customer'"`
	Active       bool           `json:"active" gorm:"default:true;index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID and default role before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if len(u.Roles) == 0 {
		u.Roles = roles.List{roles.Customer}
	}
	return nil
}

// RoleNames implements roles.Subject.
func (u *User) RoleNames() []string {
	return u.Roles.Strings()
}

// RoleSet returns the resolved roles of the user.
func (u *User) RoleSet() roles.Set {
	return roles.Resolve(u)
}
