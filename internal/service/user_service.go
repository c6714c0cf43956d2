package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"coachgate/internal/auth"
	"coachgate/internal/cache"
	apperrors "coachgate/internal/errors"
	"coachgate/internal/model"
	"coachgate/internal/repository"
	"coachgate/internal/roles"
)

const userCacheTTL = 5 * time.Minute

// UserService exposes user and role management.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetRoles(ctx context.Context, actor auth.Principal, id uuid.UUID, names []string) (*model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func userCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id.String())
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, userCacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, userCacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

// SetRoles replaces a user's roles. Admins cannot drop their own admin role.
func (s *userService) SetRoles(ctx context.Context, actor auth.Principal, id uuid.UUID, names []string) (*model.User, error) {
	if !actor.Roles.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	list, err := roles.ParseList(names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRole, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: at least one role is required", apperrors.ErrInvalidRole)
	}
	if actor.UserID == id && !list.Set().IsAdmin() {
		return nil, fmt.Errorf("%w: cannot remove your own admin role", apperrors.ErrInvalidRole)
	}

	if err := s.repo.UpdateRoles(ctx, id, list); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("update roles: %w", err)
	}
	_ = s.cache.Delete(ctx, userCacheKey(id))

	return s.GetUser(ctx, id)
}
