package auth

import (
	"fmt"

	"github.com/google/uuid"

	"coachgate/internal/roles"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Roles  roles.Set
}

// PrincipalFromClaims builds a Principal from validated access token claims.
func PrincipalFromClaims(c *Claims) (Principal, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return Principal{}, fmt.Errorf("parse user id: %w", err)
	}
	return Principal{
		UserID: id,
		Email:  c.Email,
		Roles:  roles.Resolve(c),
	}, nil
}
