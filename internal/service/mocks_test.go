package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"coachgate/internal/model"
	"coachgate/internal/repository"
	"coachgate/internal/roles"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRoles(ctx context.Context, id uuid.UUID, list roles.List) error {
	args := m.Called(ctx, id, list)
	return args.Error(0)
}

// MockWorkoutRepository is a mock implementation of WorkoutRepository.
type MockWorkoutRepository struct {
	mock.Mock
}

func (m *MockWorkoutRepository) Create(ctx context.Context, workout *model.Workout) error {
	args := m.Called(ctx, workout)
	return args.Error(0)
}

func (m *MockWorkoutRepository) Update(ctx context.Context, workout *model.Workout) error {
	args := m.Called(ctx, workout)
	return args.Error(0)
}

func (m *MockWorkoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Workout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Return a copy so the service mutates its own value.
	w := *args.Get(0).(*model.Workout)
	return &w, args.Error(1)
}

func (m *MockWorkoutRepository) List(ctx context.Context, filter repository.WorkoutFilter) ([]model.Workout, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Workout), args.Error(1)
}

func (m *MockWorkoutRepository) CountActiveSelfCreated(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

// WithOwnerLock returns the owner given to On("WithOwnerLock") and runs fn
// against the mock itself.
func (m *MockWorkoutRepository) WithOwnerLock(ctx context.Context, ownerID uuid.UUID, fn func(ctx context.Context, repo repository.WorkoutRepository, owner *model.User) error) error {
	args := m.Called(ctx, ownerID)
	if err := args.Error(1); err != nil {
		return err
	}
	return fn(ctx, m, args.Get(0).(*model.User))
}

// MockAssignmentRepository is a mock implementation of AssignmentRepository.
type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Create(ctx context.Context, assignment *model.CoachAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Delete(ctx context.Context, coachID, customerID uuid.UUID) error {
	args := m.Called(ctx, coachID, customerID)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Exists(ctx context.Context, coachID, customerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, coachID, customerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssignmentRepository) ListCustomers(ctx context.Context, coachID uuid.UUID) ([]model.User, error) {
	args := m.Called(ctx, coachID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// fakeWorkoutLogRepository records written log entries.
type fakeWorkoutLogRepository struct {
	mu      sync.Mutex
	entries []model.WorkoutLog
}

func (r *fakeWorkoutLogRepository) Create(_ context.Context, log *model.WorkoutLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

func (r *fakeWorkoutLogRepository) CreateBatch(_ context.Context, logs []model.WorkoutLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logs...)
	return nil
}

func (r *fakeWorkoutLogRepository) Actions() []model.WorkoutAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.WorkoutAction, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, email, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uuid.UUID), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}
