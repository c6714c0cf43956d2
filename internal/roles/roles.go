package roles

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Role is one of the fixed access roles a user can hold.
type Role string

const (
	Admin    Role = "admin"
	Coach    Role = "coach"
	Customer Role = "customer"
)

// ErrUnknownRole is returned when a role name is not one of the known roles.
var ErrUnknownRole = errors.New("unknown role")

// All lists every role in priority order, highest first.
var All = []Role{Admin, Coach, Customer}

// Parse converts a role name into a Role.
func Parse(name string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(name))); r {
	case Admin, Coach, Customer:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, err := Parse(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}

func (r Role) bit() Set {
	switch r {
	case Admin:
		return 1 << 0
	case Coach:
		return 1 << 1
	case Customer:
		return 1 << 2
	default:
		return 0
	}
}

// Set is an unordered collection of roles. The zero value is empty.
type Set uint8

// NewSet builds a Set from the given roles, ignoring unknown values.
func NewSet(rs ...Role) Set {
	var s Set
	for _, r := range rs {
		s |= r.bit()
	}
	return s
}

// Has reports whether r is in the set.
func (s Set) Has(r Role) bool {
	b := r.bit()
	return b != 0 && s&b != 0
}

// Empty reports whether the set holds no roles.
func (s Set) Empty() bool { return s == 0 }

func (s Set) IsAdmin() bool    { return s.Has(Admin) }
func (s Set) IsCoach() bool    { return s.Has(Coach) }
func (s Set) IsCustomer() bool { return s.Has(Customer) }

// HasUnlimited reports whether the set grants unlimited workout creation.
func (s Set) HasUnlimited() bool {
	return s.IsAdmin() || s.IsCoach()
}

// Primary returns the highest priority role in the set, or Customer when the
// set is empty.
func (s Set) Primary() Role {
	for _, r := range All {
		if s.Has(r) {
			return r
		}
	}
	return Customer
}

// Roles returns the members of the set in priority order.
func (s Set) Roles() []Role {
	out := make([]Role, 0, len(All))
	for _, r := range All {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Strings returns the role names in priority order.
func (s Set) Strings() []string {
	rs := s.Roles()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

func (s Set) String() string {
	return strings.Join(s.Strings(), ",")
}

// Subject is anything that carries role names, such as a session or a user
// record.
type Subject interface {
	RoleNames() []string
}

// Resolve returns the effective role set of a subject. Unknown names are
// dropped and a subject without roles resolves to customer.
func Resolve(sub Subject) Set {
	if sub == nil {
		return NewSet(Customer)
	}
	return FromStrings(sub.RoleNames())
}

// FromStrings parses role names into a Set, defaulting to customer.
func FromStrings(names []string) Set {
	var s Set
	for _, n := range names {
		if r, err := Parse(n); err == nil {
			s |= r.bit()
		}
	}
	if s.Empty() {
		s = NewSet(Customer)
	}
	return s
}

// List is a role list persisted as a comma separated column.
type List []Role

// Set returns the roles of the list as a Set.
func (l List) Set() Set {
	return NewSet(l...)
}

// Strings returns the role names in list order.
func (l List) Strings() []string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = string(r)
	}
	return out
}

// Value implements driver.Valuer.
func (l List) Value() (driver.Value, error) {
	return strings.Join(l.Strings(), ","), nil
}

// Scan implements sql.Scanner.
func (l *List) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan roles: unsupported type %T", src)
	}

	parsed := List{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := Parse(part)
		if err != nil {
			return fmt.Errorf("scan roles: %w", err)
		}
		parsed = append(parsed, r)
	}
	*l = parsed
	return nil
}

// ParseList parses role names into a deduplicated List in priority order.
func ParseList(names []string) (List, error) {
	var s Set
	for _, n := range names {
		r, err := Parse(n)
		if err != nil {
			return nil, err
		}
		s |= r.bit()
	}
	return List(s.Roles()), nil
}
