package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "coachgate/internal/errors"
	"coachgate/internal/model"
	"coachgate/internal/repository"
)

// AssignmentService manages which coaches train which customers.
type AssignmentService interface {
	Assign(ctx context.Context, coachID, customerID uuid.UUID) (*model.CoachAssignment, error)
	Unassign(ctx context.Context, coachID, customerID uuid.UUID) error
	Customers(ctx context.Context, coachID uuid.UUID) ([]model.User, error)
}

type assignmentService struct {
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
}

// NewAssignmentService creates a new assignment service.
func NewAssignmentService(userRepo repository.UserRepository, assignmentRepo repository.AssignmentRepository) AssignmentService {
	return &assignmentService{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
	}
}

// Assign links a coach to a customer. The coach must hold the coach role and
// the customer the customer role.
func (s *assignmentService) Assign(ctx context.Context, coachID, customerID uuid.UUID) (*model.CoachAssignment, error) {
	if coachID == customerID {
		return nil, fmt.Errorf("%w: a coach cannot be assigned to themself", apperrors.ErrInvalidRole)
	}

	coach, err := s.findUser(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if !coach.RoleSet().IsCoach() {
		return nil, fmt.Errorf("%w: user %s is not a coach", apperrors.ErrInvalidRole, coachID)
	}

	customer, err := s.findUser(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !customer.RoleSet().IsCustomer() {
		return nil, fmt.Errorf("%w: user %s is not a customer", apperrors.ErrInvalidRole, customerID)
	}

	exists, err := s.assignmentRepo.Exists(ctx, coachID, customerID)
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if exists {
		return nil, apperrors.ErrAssignmentExists
	}

	assignment := &model.CoachAssignment{CoachID: coachID, CustomerID: customerID}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return assignment, nil
}

// Unassign removes a coach from a customer.
func (s *assignmentService) Unassign(ctx context.Context, coachID, customerID uuid.UUID) error {
	if err := s.assignmentRepo.Delete(ctx, coachID, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAssignmentNotFound
		}
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

// Customers lists the customers assigned to a coach.
func (s *assignmentService) Customers(ctx context.Context, coachID uuid.UUID) ([]model.User, error) {
	return s.assignmentRepo.ListCustomers(ctx, coachID)
}

func (s *assignmentService) findUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
