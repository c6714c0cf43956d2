package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"coachgate/internal/auth"
	"coachgate/internal/cache"
	apperrors "coachgate/internal/errors"
	"coachgate/internal/model"
	"coachgate/internal/roles"
)

func TestUserService_GetUserCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0, zerolog.Nop())
	defer c.Close()

	user := &model.User{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Roles: roles.List{roles.Customer}, Active: true}
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	svc := NewUserService(repo, c)

	first, err := svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	second, err := svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Email, second.Email)
	assert.Equal(t, roles.List{roles.Customer}, second.Roles)
	assert.True(t, mr.Exists("user:"+user.ID.String()))
	repo.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestUserService_GetUserNotFound(t *testing.T) {
	repo := new(MockUserRepository)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := NewUserService(repo, nil).GetUser(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserService_SetRoles(t *testing.T) {
	admin := auth.Principal{UserID: uuid.New(), Roles: roles.NewSet(roles.Admin)}
	target := uuid.New()

	tests := []struct {
		name    string
		actor   auth.Principal
		id      uuid.UUID
		names   []string
		setup   func(*MockUserRepository)
		wantErr error
	}{
		{
			name:  "promote to coach",
			actor: admin,
			id:    target,
			names: []string{"Customer", "coach"},
			setup: func(m *MockUserRepository) {
				m.On("UpdateRoles", mock.Anything, target, roles.List{roles.Coach, roles.Customer}).Return(nil)
				m.On("FindByID", mock.Anything, target).Return(&model.User{ID: target, Roles: roles.List{roles.Coach, roles.Customer}}, nil)
			},
		},
		{
			name:    "not an admin",
			actor:   auth.Principal{UserID: uuid.New(), Roles: roles.NewSet(roles.Coach)},
			id:      target,
			names:   []string{"coach"},
			setup:   func(*MockUserRepository) {},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name:    "unknown role",
			actor:   admin,
			id:      target,
			names:   []string{"superuser"},
			setup:   func(*MockUserRepository) {},
			wantErr: apperrors.ErrInvalidRole,
		},
		{
			name:    "empty roles",
			actor:   admin,
			id:      target,
			names:   nil,
			setup:   func(*MockUserRepository) {},
			wantErr: apperrors.ErrInvalidRole,
		},
		{
			name:    "admin demotes themself",
			actor:   admin,
			id:      admin.UserID,
			names:   []string{"coach"},
			setup:   func(*MockUserRepository) {},
			wantErr: apperrors.ErrInvalidRole,
		},
		{
			name:  "missing user",
			actor: admin,
			id:    target,
			names: []string{"coach"},
			setup: func(m *MockUserRepository) {
				m.On("UpdateRoles", mock.Anything, target, roles.List{roles.Coach}).Return(gorm.ErrRecordNotFound)
			},
			wantErr: apperrors.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setup(repo)
			svc := NewUserService(repo, nil)

			user, err := svc.SetRoles(context.Background(), tt.actor, tt.id, tt.names)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, user.RoleSet().IsCoach())
			repo.AssertExpectations(t)
		})
	}
}
