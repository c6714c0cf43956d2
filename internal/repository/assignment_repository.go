package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"coachgate/internal/model"
)

// AssignmentRepository defines coach assignment persistence operations.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.CoachAssignment) error
	Delete(ctx context.Context, coachID, customerID uuid.UUID) error
	Exists(ctx context.Context, coachID, customerID uuid.UUID) (bool, error)
	ListCustomers(ctx context.Context, coachID uuid.UUID) ([]model.User, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// Create creates a new assignment record.
func (r *assignmentRepository) Create(ctx context.Context, assignment *model.CoachAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// Delete removes the assignment of coachID to customerID.
func (r *assignmentRepository) Delete(ctx context.Context, coachID, customerID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("coach_id = ? AND customer_id = ?", coachID, customerID).
		Delete(&model.CoachAssignment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Exists reports whether coachID is assigned to customerID.
func (r *assignmentRepository) Exists(ctx context.Context, coachID, customerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CoachAssignment{}).
		Where("coach_id = ? AND customer_id = ?", coachID, customerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListCustomers returns the customers assigned to a coach.
func (r *assignmentRepository) ListCustomers(ctx context.Context, coachID uuid.UUID) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN coach_assignments ON coach_assignments.customer_id = users.id").
		Where("coach_assignments.coach_id = ?", coachID).
		Order("users.name").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
