package handlers

import (
	"context"
	"errors"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/rules"
)

// ErrActorInactive is returned when the acting account exists but is not
// active anymore.
var ErrActorInactive = errors.New("account is not active")

// ActorResolver turns token claims into a rule-engine actor. The role is
// read back from storage so a role change or deactivation takes effect
// immediately, however long the token outlives it.
type ActorResolver struct {
	users db.UserCollection
}

// NewActorResolver creates a resolver over the user collection.
func NewActorResolver(users db.UserCollection) *ActorResolver {
	return &ActorResolver{users: users}
}

// Resolve loads the acting user and returns an actor carrying the current
// role from storage.
func (r *ActorResolver) Resolve(ctx context.Context, claims *models.Claims) (rules.Actor, error) {
	user, err := r.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		return rules.Actor{}, err
	}
	if user.Status == models.UserStatusInactive {
		return rules.Actor{}, ErrActorInactive
	}
	return rules.Actor{ID: claims.UserID, Role: user.Role}, nil
}
