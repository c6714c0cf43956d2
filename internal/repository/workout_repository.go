package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coachgate/internal/model"
)

// WorkoutFilter narrows a workout listing.
type WorkoutFilter struct {
	OwnerID uuid.UUID
	Status  model.WorkoutStatus
}

// WorkoutRepository defines workout persistence operations.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *model.Workout) error
	Update(ctx context.Context, workout *model.Workout) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Workout, error)
	List(ctx context.Context, filter WorkoutFilter) ([]model.Workout, error)
	// CountActiveSelfCreated counts active workouts the owner created themself.
	CountActiveSelfCreated(ctx context.Context, ownerID uuid.UUID) (int, error)
	// WithOwnerLock runs fn in a transaction holding a row lock on the
	// owner, serializing limit checks and writes for that owner.
	WithOwnerLock(ctx context.Context, ownerID uuid.UUID, fn func(ctx context.Context, repo WorkoutRepository, owner *model.User) error) error
}

type workoutRepository struct {
	db *gorm.DB
}

// NewWorkoutRepository creates a new workout repository.
func NewWorkoutRepository(db *gorm.DB) WorkoutRepository {
	return &workoutRepository{db: db}
}

// Create creates a new workout record.
func (r *workoutRepository) Create(ctx context.Context, workout *model.Workout) error {
	return r.db.WithContext(ctx).Create(workout).Error
}

// Update updates an existing workout record.
func (r *workoutRepository) Update(ctx context.Context, workout *model.Workout) error {
	return r.db.WithContext(ctx).Save(workout).Error
}

// FindByID finds a workout by ID.
func (r *workoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Workout, error) {
	var workout model.Workout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&workout).Error; err != nil {
		return nil, err
	}
	return &workout, nil
}

// List returns the owner's workouts, newest first.
func (r *workoutRepository) List(ctx context.Context, filter WorkoutFilter) ([]model.Workout, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", filter.OwnerID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var workouts []model.Workout
	if err := q.Order("created_at DESC").Find(&workouts).Error; err != nil {
		return nil, err
	}
	return workouts, nil
}

func (r *workoutRepository) CountActiveSelfCreated(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Workout{}).
		Where("owner_id = ? AND created_by_id = ? AND status = ?", ownerID, ownerID, model.WorkoutStatusActive).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// WithOwnerLock executes fn within a transaction after locking the owner row.
func (r *workoutRepository) WithOwnerLock(ctx context.Context, ownerID uuid.UUID, fn func(ctx context.Context, repo WorkoutRepository, owner *model.User) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", ownerID).
			First(&owner).Error; err != nil {
			return err
		}
		return fn(ctx, &workoutRepository{db: tx}, &owner)
	})
}

// WorkoutLogRepository defines workout log persistence operations.
type WorkoutLogRepository interface {
	Create(ctx context.Context, log *model.WorkoutLog) error
	CreateBatch(ctx context.Context, logs []model.WorkoutLog) error
}

type workoutLogRepository struct {
	db *gorm.DB
}

// NewWorkoutLogRepository creates a new workout log repository.
func NewWorkoutLogRepository(db *gorm.DB) WorkoutLogRepository {
	return &workoutLogRepository{db: db}
}

// Create creates a new workout log entry.
func (r *workoutLogRepository) Create(ctx context.Context, log *model.WorkoutLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// CreateBatch creates multiple workout log entries in a single statement.
func (r *workoutLogRepository) CreateBatch(ctx context.Context, logs []model.WorkoutLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}
