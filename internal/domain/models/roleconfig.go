// internal/domain/models/roleconfig.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleConfig is the stored shape of a role or a tier: a name plus an
// unordered set of "resource:verb" permission strings. Roles describe
// function (what kind of actor this is); tiers describe operational
// scope. Both are configuration: created by administrators, rarely
// mutated, and unioned into an actor's effective permission set at
// check time.
type RoleConfig struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Permissions []string           `bson:"permissions" json:"permissions"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// BuiltinRoles are seeded at startup when the roles collection is empty.
// Administrators may edit the permission lists afterwards; the names are
// fixed because the user document's role flags reference them.
var BuiltinRoles = []RoleConfig{
	{
		Name: RoleAdmin,
		Permissions: []string{
			"campaigns:read", "campaigns:create", "campaigns:update", "campaigns:delete",
			"users:read", "users:create", "users:update", "users:delete",
			"teams:read", "teams:create", "teams:update", "teams:delete",
			"governance:read", "governance:create", "governance:update",
			"export:read", "export:write",
			"reports:read",
			"ai-suggestions:read", "ai-suggestions:create", "ai-suggestions:update", "ai-suggestions:delete",
			"telemetry:read",
		},
	},
	{
		Name: RoleEditor,
		Permissions: []string{
			"campaigns:read", "campaigns:create", "campaigns:update",
			"governance:read",
			"reports:read",
			"ai-suggestions:read", "ai-suggestions:create", "ai-suggestions:update",
		},
	},
	{
		Name: RoleReviewer,
		Permissions: []string{
			"campaigns:read",
			"governance:read", "governance:create", "governance:update",
			"reports:read",
		},
	},
	{
		Name: RoleViewer,
		Permissions: []string{
			"campaigns:read",
			"reports:read",
		},
	},
	{
		Name: RoleService,
		Permissions: []string{
			"campaigns:read", "campaigns:create", "campaigns:update",
			"ai-suggestions:read", "ai-suggestions:create", "ai-suggestions:update",
			"telemetry:read",
		},
	},
}

// BuiltinTiers are seeded at startup when the tiers collection is empty.
var BuiltinTiers = []RoleConfig{
	{
		Name:        TierStandard,
		Permissions: []string{},
	},
	{
		Name: TierExtended,
		Permissions: []string{
			"export:read", "export:write",
			"telemetry:read",
		},
	},
	{
		Name: TierAutomation,
		Permissions: []string{
			"telemetry:read",
			"ai-suggestions:read",
		},
	},
}
