// internal/app/policy/governancepolicy/governancepolicy.go

// Package governancepolicy translates session users into permission
// decisions for the review queue and the audit browser. Governance
// records have no owner, so these checks are resource-level only.
package governancepolicy

import (
	"context"

	"github.com/dalemusser/planhub/internal/app/system/perms"
	"github.com/dalemusser/planhub/internal/domain/models"
)

// CanView reports whether user may read governance records: the pending
// queue and the audit log.
func CanView(ctx context.Context, resolver *perms.Resolver, user *models.User) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbRead)
}

// CanDecide reports whether user may approve or reject reviews.
func CanDecide(ctx context.Context, resolver *perms.Resolver, user *models.User) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbUpdate)
}

func decide(ctx context.Context, resolver *perms.Resolver, user *models.User, verb perms.Verb) (bool, error) {
	if user == nil {
		return false, nil
	}
	effective, err := resolver.EffectiveFor(ctx, user)
	if err != nil {
		return false, err
	}
	res := perms.Resource{Type: perms.ResGovernance}
	return perms.Can(user, verb, res, nil, effective).Allowed, nil
}
