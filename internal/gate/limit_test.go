package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coachgate/internal/roles"
)

func TestPolicyDecide(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name  string
		set   roles.Set
		count int
		want  Decision
	}{
		{
			name:  "customer under limit",
			set:   roles.NewSet(roles.Customer),
			count: 2,
			want:  Decision{CanCreate: true, CurrentCount: 2, MaxAllowed: 3, UserRole: roles.Customer},
		},
		{
			name:  "customer at limit",
			set:   roles.NewSet(roles.Customer),
			count: 3,
			want:  Decision{CanCreate: false, CurrentCount: 3, MaxAllowed: 3, UserRole: roles.Customer},
		},
		{
			name:  "coach far over customer limit",
			set:   roles.NewSet(roles.Coach),
			count: 50,
			want:  Decision{CanCreate: true, CurrentCount: 50, MaxAllowed: Unlimited, UserRole: roles.Coach},
		},
		{
			name:  "admin who is also a customer",
			set:   roles.NewSet(roles.Customer, roles.Admin),
			count: 10,
			want:  Decision{CanCreate: true, CurrentCount: 10, MaxAllowed: Unlimited, UserRole: roles.Admin},
		},
		{
			name:  "negative count clamps to zero",
			set:   roles.NewSet(roles.Customer),
			count: -4,
			want:  Decision{CanCreate: true, CurrentCount: 0, MaxAllowed: 3, UserRole: roles.Customer},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Decide(tt.set, tt.count))
		})
	}
}

func TestPolicyUnlimitedRolesAlwaysCreate(t *testing.T) {
	p := DefaultPolicy()
	for _, set := range []roles.Set{
		roles.NewSet(roles.Admin),
		roles.NewSet(roles.Coach),
		roles.NewSet(roles.Coach, roles.Customer),
	} {
		for count := 0; count < 200; count += 7 {
			assert.True(t, p.Decide(set, count).CanCreate, "set=%s count=%d", set, count)
		}
	}
}

func TestPolicyCustomerLimitBoundary(t *testing.T) {
	p := DefaultPolicy()
	customer := roles.NewSet(roles.Customer)
	for count := 0; count < 10; count++ {
		assert.Equal(t, count < 3, p.Decide(customer, count).CanCreate, "count=%d", count)
	}
}

func TestPolicyFallback(t *testing.T) {
	p := DefaultPolicy()

	d := p.Fallback(roles.NewSet(roles.Coach), true)
	assert.True(t, d.CanCreate)
	assert.Equal(t, Unlimited, d.MaxAllowed)
	assert.Equal(t, roles.Coach, d.UserRole)

	d = p.Fallback(roles.NewSet(roles.Customer), true)
	assert.False(t, d.CanCreate)

	d = p.Fallback(0, false)
	assert.False(t, d.CanCreate)
	assert.Equal(t, Limit(3), d.MaxAllowed)
}

func TestLimitString(t *testing.T) {
	assert.Equal(t, "∞", Unlimited.String())
	assert.Equal(t, "3", Limit(3).String())
	assert.Equal(t, "0", Limit(0).String())
}

func TestNewPolicy(t *testing.T) {
	assert.Equal(t, 5, NewPolicy(5).CustomerLimit)
	assert.Equal(t, CustomerWorkoutLimit, NewPolicy(-1).CustomerLimit)
}
