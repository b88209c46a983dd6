package rules

import "github.com/vertilift/lift-maintenance/internal/models"

// Creation-time reference validation. Controllers resolve the referenced
// user from storage and hand the result here; the engine only judges it.
// Roles are judged on the user's current persisted record, never on a
// caller-supplied claim.

// ValidateClientReference checks that a resolved client reference is usable.
// A missing user is NotFound; a user holding a non-client role is
// InvalidReference.
func ValidateClientReference(u *models.User) ErrorKind {
	if u == nil {
		return ErrNotFound
	}
	if u.Role != models.RoleClient {
		return ErrInvalidReference
	}
	return ErrNone
}

// ValidateTechnicianReference checks that a resolved technician reference is
// usable. A missing user is NotFound; a user holding a non-technician role
// is InvalidReference.
func ValidateTechnicianReference(u *models.User) ErrorKind {
	if u == nil {
		return ErrNotFound
	}
	if u.Role != models.RoleTechnician {
		return ErrInvalidReference
	}
	return ErrNone
}
