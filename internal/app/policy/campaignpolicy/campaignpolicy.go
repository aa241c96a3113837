// internal/app/policy/campaignpolicy/campaignpolicy.go

// Package campaignpolicy translates session users and campaign documents
// into permission decisions. Handlers call these helpers instead of
// assembling perms.Resource literals inline, so the shape of a campaign
// check lives in exactly one place.
package campaignpolicy

import (
	"context"

	"github.com/dalemusser/planhub/internal/app/system/perms"
	"github.com/dalemusser/planhub/internal/domain/models"
)

// CanView reports whether user may read the campaign.
func CanView(ctx context.Context, resolver *perms.Resolver, user *models.User, c *models.Campaign) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbRead, campaignResource(c), campaignRecord(c))
}

// CanCreate reports whether user may create campaigns.
func CanCreate(ctx context.Context, resolver *perms.Resolver, user *models.User) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbCreate, perms.Resource{Type: perms.ResCampaigns}, nil)
}

// CanEdit reports whether user may modify the campaign.
func CanEdit(ctx context.Context, resolver *perms.Resolver, user *models.User, c *models.Campaign) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbUpdate, campaignResource(c), campaignRecord(c))
}

// CanDelete reports whether user may delete the campaign.
func CanDelete(ctx context.Context, resolver *perms.Resolver, user *models.User, c *models.Campaign) (bool, error) {
	return decide(ctx, resolver, user, perms.VerbDelete, campaignResource(c), campaignRecord(c))
}

// CanExport reports whether user may produce the export artifact for the
// campaign. Export is its own resource kind: the editor role alone does
// not carry it, the extended tier (or admin role) does, and the service
// clamp always denies it.
func CanExport(ctx context.Context, resolver *perms.Resolver, user *models.User, c *models.Campaign) (bool, error) {
	res := perms.Resource{
		Type:   perms.ResExport,
		ID:     c.ID.Hex(),
		TeamID: c.TeamID,
		Status: c.Status,
	}
	return decide(ctx, resolver, user, perms.VerbWrite, res, campaignRecord(c))
}

func decide(ctx context.Context, resolver *perms.Resolver, user *models.User, verb perms.Verb, res perms.Resource, rec *perms.Record) (bool, error) {
	if user == nil {
		return false, nil
	}
	effective, err := resolver.EffectiveFor(ctx, user)
	if err != nil {
		return false, err
	}
	return perms.Can(user, verb, res, rec, effective).Allowed, nil
}

func campaignResource(c *models.Campaign) perms.Resource {
	return perms.Resource{
		Type:    perms.ResCampaigns,
		ID:      c.ID.Hex(),
		OwnerID: ownerHex(c),
		TeamID:  c.TeamID,
		Status:  c.Status,
	}
}

func campaignRecord(c *models.Campaign) *perms.Record {
	return &perms.Record{
		ID:      c.ID.Hex(),
		OwnerID: ownerHex(c),
		TeamID:  c.TeamID,
		Status:  c.Status,
	}
}

// ownerHex picks the campaign's owner for the ownership overlay: the
// assignee when one is set, otherwise the author. Assignment transfers
// responsibility; administrators bypass ownership entirely.
func ownerHex(c *models.Campaign) string {
	if c.AssignedTo != nil {
		return c.AssignedTo.Hex()
	}
	if !c.CreatedBy.IsZero() {
		return c.CreatedBy.Hex()
	}
	return ""
}
