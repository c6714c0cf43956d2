package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachgate/internal/roles"
)

func TestWorkoutCountsTowardLimit(t *testing.T) {
	owner := uuid.New()
	coach := uuid.New()

	tests := []struct {
		name    string
		workout Workout
		want    bool
	}{
		{name: "active self-created", workout: Workout{OwnerID: owner, CreatedByID: owner, Status: WorkoutStatusActive}, want: true},
		{name: "archived self-created", workout: Workout{OwnerID: owner, CreatedByID: owner, Status: WorkoutStatusArchived}},
		{name: "completed self-created", workout: Workout{OwnerID: owner, CreatedByID: owner, Status: WorkoutStatusCompleted}},
		{name: "active assigned by coach", workout: Workout{OwnerID: owner, CreatedByID: coach, Status: WorkoutStatusActive}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.workout.CountsTowardLimit())
		})
	}
}

func TestBeforeCreateDefaults(t *testing.T) {
	u := &User{}
	require.NoError(t, u.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, roles.List{roles.Customer}, u.Roles)

	w := &Workout{}
	require.NoError(t, w.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, WorkoutStatusActive, w.Status)
}

func TestUserRoleSet(t *testing.T) {
	u := &User{Roles: roles.List{roles.Customer, roles.Coach}}
	set := u.RoleSet()
	assert.True(t, set.IsCoach())
	assert.Equal(t, roles.Coach, set.Primary())
}

func TestWorkoutStatusValid(t *testing.T) {
	assert.True(t, WorkoutStatusArchived.Valid())
	assert.False(t, WorkoutStatus("deleted").Valid())
}
