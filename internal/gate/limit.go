package gate

import (
	"strconv"

	"coachgate/internal/roles"
)

// CustomerWorkoutLimit is the default number of active self-created workouts a
// customer-only user may hold.
const CustomerWorkoutLimit = 3

// Limit is a workout ceiling. Unlimited marks an unbounded ceiling.
type Limit int

// Unlimited is the sentinel for users without a ceiling.
const Unlimited Limit = -1

// Bounded reports whether l is a finite ceiling.
func (l Limit) Bounded() bool { return l >= 0 }

// String renders the limit for display, using "∞" when unbounded.
func (l Limit) String() string {
	if !l.Bounded() {
		return "∞"
	}
	return strconv.Itoa(int(l))
}

// Decision is the outcome of a limit check.
type Decision struct {
	CanCreate    bool       `json:"can_create"`
	CurrentCount int        `json:"current_count"`
	MaxAllowed   Limit      `json:"max_allowed"`
	UserRole     roles.Role `json:"user_role"`
}

// Policy decides whether a user may create another workout.
type Policy struct {
	CustomerLimit int
}

// DefaultPolicy returns the policy with CustomerWorkoutLimit.
func DefaultPolicy() Policy {
	return Policy{CustomerLimit: CustomerWorkoutLimit}
}

// NewPolicy returns a policy with the given customer limit, falling back to
// CustomerWorkoutLimit for negative values.
func NewPolicy(customerLimit int) Policy {
	if customerLimit < 0 {
		customerLimit = CustomerWorkoutLimit
	}
	return Policy{CustomerLimit: customerLimit}
}

// Decide computes the decision for a resolved role set and a count of active
// self-created workouts. Admins and coaches are never limited.
func (p Policy) Decide(set roles.Set, count int) Decision {
	if count < 0 {
		count = 0
	}
	if set.HasUnlimited() {
		return Decision{
			CanCreate:    true,
			CurrentCount: count,
			MaxAllowed:   Unlimited,
			UserRole:     set.Primary(),
		}
	}
	return Decision{
		CanCreate:    count < p.CustomerLimit,
		CurrentCount: count,
		MaxAllowed:   Limit(p.CustomerLimit),
		UserRole:     roles.Customer,
	}
}

// Fallback computes the decision used when the remote count is unavailable.
// Only a cached admin or coach role permits creation.
func (p Policy) Fallback(cached roles.Set, ok bool) Decision {
	if ok && cached.HasUnlimited() {
		return Decision{
			CanCreate:  true,
			MaxAllowed: Unlimited,
			UserRole:   cached.Primary(),
		}
	}
	return p.Initial()
}

// Initial is the decision held before any check has completed.
func (p Policy) Initial() Decision {
	return Decision{
		CanCreate:  false,
		MaxAllowed: Limit(p.CustomerLimit),
		UserRole:   roles.Customer,
	}
}
