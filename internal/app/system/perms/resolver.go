// internal/app/system/perms/resolver.go
package perms

import (
	"context"
	"errors"
	"fmt"

	rolestore "github.com/dalemusser/planhub/internal/app/store/roles"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Resolver loads role and tier configuration and computes an actor's
// effective permission set. It is the only part of this package that
// touches the database; Effective, Has, HasAny, and Can stay pure.
type Resolver struct {
	roles *rolestore.Store
}

func NewResolver(db *mongo.Database) *Resolver {
	return &Resolver{roles: rolestore.New(db)}
}

// EffectiveFor computes the effective permission set for a user from
// their primary role, their tier, and their explicit grants. The set is
// recomputed on every call; callers must not cache it across requests.
//
// A role or tier name with no stored config contributes no grants; that
// is configuration slack, not an error.
func (r *Resolver) EffectiveFor(ctx context.Context, user *models.User) (Set, error) {
	if user == nil {
		return NewSet(), nil
	}

	roleCfg, err := r.roles.GetRole(ctx, user.PrimaryRole())
	if err != nil && !errors.Is(err, rolestore.ErrNotFound) {
		return nil, fmt.Errorf("load role config: %w", err)
	}

	var tierCfg *models.RoleConfig
	if user.Tier != "" {
		tierCfg, err = r.roles.GetTier(ctx, user.Tier)
		if err != nil && !errors.Is(err, rolestore.ErrNotFound) {
			return nil, fmt.Errorf("load tier config: %w", err)
		}
	}

	return Effective(roleCfg, tierCfg, user), nil
}
