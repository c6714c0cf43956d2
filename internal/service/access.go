package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"coachgate/internal/auth"
	"coachgate/internal/repository"
)

// canActFor reports whether p may read or change data owned by ownerID:
// the owner themself, an admin, or a coach assigned to the owner.
func canActFor(ctx context.Context, assignments repository.AssignmentRepository, p auth.Principal, ownerID uuid.UUID) (bool, error) {
	if p.UserID == ownerID || p.Roles.IsAdmin() {
		return true, nil
	}
	if !p.Roles.IsCoach() {
		return false, nil
	}
	ok, err := assignments.Exists(ctx, p.UserID, ownerID)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return ok, nil
}
