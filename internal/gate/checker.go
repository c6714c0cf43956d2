package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"coachgate/internal/roles"
)

// ErrCheckFailed wraps any failure to obtain the remote workout count. The
// decision returned alongside it is the fallback decision.
var ErrCheckFailed = errors.New("workout limit check failed")

// Session is the authenticated user the gate decides for.
type Session struct {
	UserID string
	Email  string
	Name   string
	Roles  []string
}

// RoleNames implements roles.Subject.
func (s *Session) RoleNames() []string {
	if s == nil {
		return nil
	}
	return s.Roles
}

// Counter returns the number of active workouts the user created for
// themself.
type Counter interface {
	CountWorkouts(ctx context.Context, userID string) (int, error)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(ctx context.Context, userID string) (int, error)

func (f CounterFunc) CountWorkouts(ctx context.Context, userID string) (int, error) {
	return f(ctx, userID)
}

// Checker asks the backend for the workout count and turns it into a
// Decision.
type Checker struct {
	counter Counter
	cache   RoleCache
	policy  Policy
	log     zerolog.Logger
}

// NewChecker creates a Checker. A nil cache disables the fallback cache.
func NewChecker(counter Counter, cache RoleCache, policy Policy, log zerolog.Logger) *Checker {
	if cache == nil {
		cache = NewMemoryRoleCache()
	}
	return &Checker{
		counter: counter,
		cache:   cache,
		policy:  policy,
		log:     log.With().Str("component", "gate.checker").Logger(),
	}
}

// Policy returns the policy the checker decides with.
func (c *Checker) Policy() Policy {
	return c.policy
}

// CheckLimit decides whether the session user may create a workout. On
// failure it returns the fallback decision together with an error wrapping
// ErrCheckFailed; the decision is always usable.
func (c *Checker) CheckLimit(ctx context.Context, sess *Session) (Decision, error) {
	if sess == nil || sess.UserID == "" {
		return c.policy.Initial(), fmt.Errorf("%w: no session", ErrCheckFailed)
	}
	set := roles.Resolve(sess)

	count, err := c.counter.CountWorkouts(ctx, sess.UserID)
	if err == nil && count < 0 {
		err = fmt.Errorf("negative workout count %d", count)
	}
	if err != nil {
		cached, ok := c.cache.CachedRoles(ctx, sess.UserID)
		d := c.policy.Fallback(cached, ok)
		c.log.Warn().
			Err(err).
			Str("user_id", sess.UserID).
			Bool("cached_role", ok).
			Bool("can_create", d.CanCreate).
			Msg("using fallback workout limit decision")
		return d, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}

	if err := c.cache.SaveRoles(ctx, sess.UserID, set); err != nil {
		c.log.Debug().Err(err).Str("user_id", sess.UserID).Msg("save roles to fallback cache")
	}

	d := c.policy.Decide(set, count)
	c.log.Debug().
		Str("user_id", sess.UserID).
		Int("count", d.CurrentCount).
		Str("max", d.MaxAllowed.String()).
		Bool("can_create", d.CanCreate).
		Msg("workout limit checked")
	return d, nil
}
