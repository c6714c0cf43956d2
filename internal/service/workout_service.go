package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"coachgate/internal/auth"
	"coachgate/internal/cache"
	apperrors "coachgate/internal/errors"
	"coachgate/internal/gate"
	"coachgate/internal/model"
	"coachgate/internal/repository"
)

const workoutCountCacheTTL = time.Minute

// CreateWorkoutInput describes a new workout. A zero OwnerID creates the
// workout for the caller.
type CreateWorkoutInput struct {
	OwnerID uuid.UUID
	Name    string
	Notes   string
}

// WorkoutService handles workout operations and enforces the creation limit.
type WorkoutService interface {
	CountActiveSelfCreated(ctx context.Context, p auth.Principal, userID uuid.UUID) (int, error)
	Limit(ctx context.Context, p auth.Principal) (gate.Decision, error)
	Create(ctx context.Context, p auth.Principal, in CreateWorkoutInput) (*model.Workout, error)
	List(ctx context.Context, p auth.Principal, ownerID uuid.UUID, status model.WorkoutStatus) ([]model.Workout, error)
	Archive(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Workout, error)
	Complete(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Workout, error)
	Restore(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Workout, error)
	Close()
}

type workoutService struct {
	userRepo       repository.UserRepository
	workoutRepo    repository.WorkoutRepository
	assignmentRepo repository.AssignmentRepository
	cache          *cache.Client
	policy         gate.Policy
	logs           *workoutLogWriter
	log            zerolog.Logger
}

// NewWorkoutService creates a new workout service.
func NewWorkoutService(
	userRepo repository.UserRepository,
	workoutRepo repository.WorkoutRepository,
	workoutLogRepo repository.WorkoutLogRepository,
	assignmentRepo repository.AssignmentRepository,
	cache *cache.Client,
	policy gate.Policy,
	log zerolog.Logger,
) WorkoutService {
	log = log.With().Str("component", "workout_service").Logger()
	return &workoutService{
		userRepo:       userRepo,
		workoutRepo:    workoutRepo,
		assignmentRepo: assignmentRepo,
		cache:          cache,
		policy:         policy,
		logs:           newWorkoutLogWriter(workoutLogRepo, log),
		log:            log,
	}
}

func workoutCountCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("workouts:count:%s", userID.String())
}

// CountActiveSelfCreated returns the number of active workouts userID created
// for themself.
func (s *workoutService) CountActiveSelfCreated(ctx context.Context, p auth.Principal, userID uuid.UUID) (int, error) {
	ok, err := canActFor(ctx, s.assignmentRepo, p, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperrors.ErrForbidden
	}
	return s.cachedCount(ctx, userID)
}

func (s *workoutService) cachedCount(ctx context.Context, userID uuid.UUID) (int, error) {
	key := workoutCountCacheKey(userID)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		if n, err := strconv.Atoi(string(data)); err == nil {
			return n, nil
		}
	}

	n, err := s.workoutRepo.CountActiveSelfCreated(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count workouts: %w", err)
	}
	_ = s.cache.Set(ctx, key, []byte(strconv.Itoa(n)), workoutCountCacheTTL)
	return n, nil
}

func (s *workoutService) invalidateCount(ctx context.Context, userID uuid.UUID) {
	_ = s.cache.Delete(ctx, workoutCountCacheKey(userID))
}

// Limit returns the server-side creation decision for the caller. It uses
// the roles stored on the user, as Create does, not the token's.
func (s *workoutService) Limit(ctx context.Context, p auth.Principal) (gate.Decision, error) {
	user, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		return gate.Decision{}, s.mapNotFound(err, apperrors.ErrUserNotFound)
	}
	if !user.Active {
		return gate.Decision{}, apperrors.ErrUserInactive
	}
	n, err := s.cachedCount(ctx, p.UserID)
	if err != nil {
		return gate.Decision{}, err
	}
	return s.policy.Decide(user.RoleSet(), n), nil
}

// Create creates a workout. Customers creating for themselves are held to
// the policy limit; coaches and admins creating for a customer are not.
func (s *workoutService) Create(ctx context.Context, p auth.Principal, in CreateWorkoutInput) (*model.Workout, error) {
	ownerID := in.OwnerID
	if ownerID == uuid.Nil {
		ownerID = p.UserID
	}
	name := strings.TrimSpace(in.Name)

	ok, err := canActFor(ctx, s.assignmentRepo, p, ownerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}

	workout := &model.Workout{
		OwnerID:     ownerID,
		CreatedByID: p.UserID,
		Name:        name,
		Notes:       in.Notes,
		Status:      model.WorkoutStatusActive,
	}

	err = s.workoutRepo.WithOwnerLock(ctx, ownerID, func(ctx context.Context, repo repository.WorkoutRepository, owner *model.User) error {
		if !owner.Active {
			return apperrors.ErrUserInactive
		}
		if workout.SelfCreated() {
			if err := s.ensureWithinLimit(ctx, repo, owner); err != nil {
				return err
			}
		}
		return repo.Create(ctx, workout)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrWorkoutLimitReached) {
			s.logs.Record(ctx, model.WorkoutLog{ActorID: p.UserID, Action: model.WorkoutActionRejected, Message: err.Error()})
		}
		return nil, s.mapNotFound(err, apperrors.ErrUserNotFound)
	}

	s.invalidateCount(ctx, ownerID)
	s.logs.Record(ctx, model.WorkoutLog{WorkoutID: workout.ID, ActorID: p.UserID, Action: model.WorkoutActionCreated})
	s.log.Info().
		Str("workout_id", workout.ID.String()).
		Str("owner_id", ownerID.String()).
		Str("created_by", p.UserID.String()).
		Msg("workout created")
	return workout, nil
}

func (s *workoutService) ensureWithinLimit(ctx context.Context, repo repository.WorkoutRepository, owner *model.User) error {
	n, err := repo.CountActiveSelfCreated(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("count workouts: %w", err)
	}
	d := s.policy.Decide(owner.RoleSet(), n)
	if !d.CanCreate {
		return fmt.Errorf("%w: %d of %s active personal workouts", apperrors.ErrWorkoutLimitReached, d.CurrentCount, d.MaxAllowed)
	}
	return nil
}

// List returns workouts owned by ownerID (the caller when zero).
func (s *workoutService) List(ctx context.Context, p auth.Principal, ownerID uuid.UUID, status model.WorkoutStatus) ([]model.Workout, error) {
	if ownerID == uuid.Nil {
		ownerID = p.UserID
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidStatusTransition, status)
	}
	ok, err := canActFor(ctx, s.assignmentRepo, p, ownerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}
	return s.workoutRepo.List(ctx, repository.WorkoutFilter{OwnerID: ownerID, Status: status})
}

// Archive moves an active or completed workout to archived.
func (s *workoutService) Archive(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Workout, error) {
	return s.transition(ctx, p, id, model.WorkoutActionArchived, func(w *model.Workout, now time.Time) error {
		if w.Status == model.WorkoutStatusArchived {
			return apperrors.ErrInvalidStatusTransition
		}
		w.Status = model.WorkoutStatusArchived
		w.ArchivedAt = &now
		return nil
	})
}

// Complete moves an active workout to completed.
func (s *workoutService) Complete(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Workout, error) {
	return s.transition(ctx, p, id, model.WorkoutActionCompleted, func(w *model.Workout, now time.Time) error {
		if w.Status != model.WorkoutStatusActive {
			return apperrors.ErrInvalidStatusTransition
		}
		w.Status = model.WorkoutStatusCompleted
		w.CompletedAt = &now
		return nil
	})
}

// Restore moves an archived or completed workout back to active. Restoring a
// self-created workout is subject to the creation limit.
func (s *workoutService) Restore(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Workout, error) {
	return s.transition(ctx, p, id, model.WorkoutActionRestored, func(w *model.Workout, _ time.Time) error {
		if w.Status == model.WorkoutStatusActive {
			return apperrors.ErrInvalidStatusTransition
		}
		w.Status = model.WorkoutStatusActive
		w.ArchivedAt = nil
		w.CompletedAt = nil
		return nil
	})
}

func (s *workoutService) transition(ctx context.Context, p auth.Principal, id uuid.UUID, action model.WorkoutAction, apply func(w *model.Workout, now time.Time) error) (*model.Workout, error) {
	current, err := s.workoutRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err, apperrors.ErrWorkoutNotFound)
	}
	ok, err := canActFor(ctx, s.assignmentRepo, p, current.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}

	var updated *model.Workout
	err = s.workoutRepo.WithOwnerLock(ctx, current.OwnerID, func(ctx context.Context, repo repository.WorkoutRepository, owner *model.User) error {
		w, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(w, time.Now().UTC()); err != nil {
			return err
		}
		if action == model.WorkoutActionRestored && w.SelfCreated() {
			if err := s.ensureWithinLimit(ctx, repo, owner); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, s.mapNotFound(err, apperrors.ErrWorkoutNotFound)
	}

	s.invalidateCount(ctx, updated.OwnerID)
	s.logs.Record(ctx, model.WorkoutLog{WorkoutID: updated.ID, ActorID: p.UserID, Action: action})
	return updated, nil
}

func (s *workoutService) mapNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// Close flushes pending workout log entries.
func (s *workoutService) Close() {
	s.logs.Close()
}
