// internal/app/policy/userpolicy/userpolicy.go

// Package userpolicy translates session users into permission decisions
// for account administration. User records are unowned from the
// resolver's point of view, so the role and grant layers decide
// everything; routes additionally gate the whole area to admins.
package userpolicy

import (
	"context"

	"github.com/dalemusser/planhub/internal/app/system/perms"
	"github.com/dalemusser/planhub/internal/domain/models"
)

// CanList reports whether user may browse accounts.
func CanList(ctx context.Context, resolver *perms.Resolver, user *models.User) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbRead, "")
}

// CanCreate reports whether user may create accounts.
func CanCreate(ctx context.Context, resolver *perms.Resolver, user *models.User) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbCreate, "")
}

// CanEdit reports whether user may modify the target account.
func CanEdit(ctx context.Context, resolver *perms.Resolver, user *models.User, targetID string) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbUpdate, targetID)
}

// CanDelete reports whether user may remove the target account.
func CanDelete(ctx context.Context, resolver *perms.Resolver, user *models.User, targetID string) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbDelete, targetID)
}

func decide(ctx context.Context, resolver *perms.Resolver, user *models.User, verb perms.Verb, targetID string) (bool, error) {
	if user == nil {
		return false, nil
	}
	effective, err := resolver.EffectiveFor(ctx, user)
	if err != nil {
		return false, err
	}
	res := perms.Resource{Type: perms.ResUsers, ID: targetID}
	return perms.Can(user, verb, res, nil, effective).Allowed, nil
}
