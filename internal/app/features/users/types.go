// internal/app/features/users/types.go
package users

import (
	"github.com/dalemusser/planhub/internal/app/system/formutil"
	"github.com/dalemusser/planhub/internal/app/system/perms"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// roleChoices and tierChoices list the flag names the forms offer, in
// the order they render.
var roleChoices = []string{
	models.RoleAdmin,
	models.RoleEditor,
	models.RoleReviewer,
	models.RoleViewer,
	models.RoleService,
}

var tierChoices = []string{
	models.TierStandard,
	models.TierExtended,
	models.TierAutomation,
}

// grantPalette is the set of explicit per-user permissions the forms
// offer: every permission string any built-in role or tier uses,
// ordered by resource kind declaration, then verb.
var grantPalette = buildGrantPalette()

func buildGrantPalette() []string {
	seen := make(map[string]bool)
	for _, rc := range models.BuiltinRoles {
		for _, p := range rc.Permissions {
			seen[p] = true
		}
	}
	for _, rc := range models.BuiltinTiers {
		for _, p := range rc.Permissions {
			seen[p] = true
		}
	}

	verbs := []perms.Verb{perms.VerbRead, perms.VerbCreate, perms.VerbUpdate, perms.VerbDelete, perms.VerbWrite}
	out := make([]string, 0, len(seen))
	for _, rt := range perms.KnownResourceTypes {
		for _, v := range verbs {
			key := perms.Resource{Type: rt}.Permission(v)
			if seen[key] {
				out = append(out, key)
			}
		}
	}
	return out
}

// userRow is one line of the accounts table.
type userRow struct {
	ID     primitive.ObjectID
	Name   string
	Email  string
	Role   string // primary role flag
	Tier   string
	Status string

	HasWrike bool
	WrikeOK  bool
}

type listData struct {
	viewdata.BaseVM

	Q      string
	Status string
	Role   string
	Tier   string

	Rows  []userRow
	Roles []string
	Tiers []string

	Shown      int
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string
	RangeStart int
	RangeEnd   int
	PrevStart  int
	NextStart  int
}

type roleOption struct {
	Name    string
	Checked bool
}

type grantOption struct {
	Key     string // "resource:verb"
	Checked bool
}

type teamOption struct {
	Key     string
	Name    string
	Checked bool
}

// formData backs both account forms; ID is empty on create. Email is
// shown read-only on edit because it is the login identifier.
type formData struct {
	formutil.Base

	ID          string
	FirstName   string
	LastName    string
	DisplayName string
	Email       string
	WrikeName   string
	AuthMethod  string
	Tier        string
	Status      string

	Roles  []roleOption
	Grants []grantOption
	Teams  []teamOption

	IsEdit bool
	IsSelf bool

	PasswordRules string
}

type viewData struct {
	viewdata.BaseVM

	ID          string
	Name        string
	Email       string
	AuthMethod  string
	WrikeName   string
	WrikeOK     bool
	PrimaryRole string
	Tier        string
	Status      string

	RoleFlags []string
	Grants    []string
	Teams     []string

	CreatedAt string
	UpdatedAt string

	IsSelf  bool
	Notice  string
	Problem string
}
