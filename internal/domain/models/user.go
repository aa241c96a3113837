// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role flag names. A user document carries a map of these flags; the
// highest-precedence flag that is set is the user's primary role.
const (
	RoleAdmin    = "admin"
	RoleEditor   = "editor"
	RoleReviewer = "reviewer"
	RoleViewer   = "viewer"
	RoleService  = "service" // constrained automation identity
)

// rolePrecedence orders role flags from most to least privileged.
var rolePrecedence = []string{RoleAdmin, RoleEditor, RoleReviewer, RoleViewer, RoleService}

// Tier names. Tiers are an independent permission axis: they describe
// operational scope, not function.
const (
	TierStandard   = "standard"
	TierExtended   = "extended"
	TierAutomation = "automation"
)

// User lifecycle statuses.
const (
	UserActive    = "active"
	UserSuspended = "suspended"
)

// Authentication methods. Email is the login identifier for both; the
// method selects how the credential is verified.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

// ValidAuthMethod reports whether method is a recognized auth method.
func ValidAuthMethod(method string) bool {
	return method == AuthPassword || method == AuthGoogle
}

// ValidRole reports whether role is one of the recognized role flags.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEditor, RoleReviewer, RoleViewer, RoleService:
		return true
	}
	return false
}

// ValidTier reports whether tier is one of the recognized tier names.
func ValidTier(tier string) bool {
	switch tier {
	case TierStandard, TierExtended, TierAutomation:
		return true
	}
	return false
}

// User represents an actor: a planner, reviewer, administrator, or
// automation identity.
//
// NOTE:
//   - Roles and Grants are boolean flag maps; a key present with value
//     false contributes nothing (same as absent).
//   - Grants is persisted under "permissions" and holds explicit
//     per-user permission strings ("resource:verb") layered on top of
//     whatever the user's role and tier already grant.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	FirstName     string             `bson:"first_name" json:"first_name"`
	LastName      string             `bson:"last_name" json:"last_name"`
	DisplayName   string             `bson:"display_name" json:"display_name"`
	DisplayNameCI string             `bson:"display_name_ci" json:"display_name_ci"` // lowercase, diacritics-stripped
	WrikeName     string             `bson:"wrike_name,omitempty" json:"wrike_name,omitempty"`
	Roles         map[string]bool    `bson:"roles" json:"roles"`
	Grants        map[string]bool    `bson:"permissions,omitempty" json:"permissions,omitempty"`
	Teams         []string           `bson:"teams,omitempty" json:"teams,omitempty"`
	Tier          string             `bson:"tier,omitempty" json:"tier,omitempty"`
	Status        string             `bson:"status" json:"status"`
	AuthMethod    string             `bson:"auth_method,omitempty" json:"auth_method,omitempty"`
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName returns the user's first and last name joined by a single space.
// This is the exact string the export identity must match.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether the given role flag is set.
func (u *User) HasRole(role string) bool {
	return u != nil && u.Roles[role]
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// IsService reports whether the user is a constrained automation identity.
func (u *User) IsService() bool { return u.HasRole(RoleService) }

// PrimaryRole returns the highest-precedence role flag that is set,
// or RoleViewer when no flag is set at all.
func (u *User) PrimaryRole() string {
	for _, role := range rolePrecedence {
		if u.HasRole(role) {
			return role
		}
	}
	return RoleViewer
}

// WrikeNameValid reports whether the export identity equals the user's
// first and last name exactly (case- and whitespace-sensitive).
func (u *User) WrikeNameValid() bool {
	return u.WrikeName == u.FullName()
}

// OnTeam reports whether the user belongs to the given team.
func (u *User) OnTeam(teamID string) bool {
	for _, t := range u.Teams {
		if t == teamID {
			return true
		}
	}
	return false
}
