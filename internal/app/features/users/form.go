// internal/app/features/users/form.go
package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/app/system/teamutil"
)

// accountInput carries the create/edit form fields through structural
// validation. Role, grant, and team checkboxes are validated separately
// because they arrive as arrays.
type accountInput struct {
	FirstName   string `validate:"required,max=100" label:"First name"`
	LastName    string `validate:"required,max=100" label:"Last name"`
	DisplayName string `validate:"max=150" label:"Display name"`
	Email       string `validate:"required,email,max=254" label:"Email"`
	WrikeName   string `validate:"max=200" label:"Wrike name"`
	AuthMethod  string `validate:"required,authmethod" label:"Sign-in method"`
}

// formValues is the raw shape of a posted account form.
type formValues struct {
	FirstName   string
	LastName    string
	DisplayName string
	Email       string
	WrikeName   string
	AuthMethod  string
	Password    string
	Tier        string
	Status      string
	Roles       map[string]bool
	Grants      map[string]bool
	Teams       []string
}

// readForm collects and normalizes the posted account fields. Checkbox
// arrays are filtered to the known palettes so a crafted form cannot
// smuggle arbitrary flag names into a user document.
func readForm(r *http.Request) formValues {
	v := formValues{
		FirstName:   normalize.Name(r.FormValue("first_name")),
		LastName:    normalize.Name(r.FormValue("last_name")),
		DisplayName: normalize.Name(r.FormValue("display_name")),
		Email:       normalize.Email(r.FormValue("email")),
		WrikeName:   normalize.Name(r.FormValue("wrike_name")),
		AuthMethod:  normalize.AuthMethod(r.FormValue("auth_method")),
		Password:    strings.TrimSpace(r.FormValue("password")),
		Tier:        normalize.Tier(r.FormValue("tier")),
		Status:      normalize.Status(r.FormValue("status")),
		Roles:       make(map[string]bool),
		Grants:      make(map[string]bool),
	}

	posted := make(map[string]bool)
	for _, role := range r.Form["roles"] {
		posted[normalize.Role(role)] = true
	}
	for _, role := range roleChoices {
		if posted[role] {
			v.Roles[role] = true
		}
	}

	postedGrants := make(map[string]bool)
	for _, g := range r.Form["grants"] {
		postedGrants[strings.ToLower(strings.TrimSpace(g))] = true
	}
	for _, key := range grantPalette {
		if postedGrants[key] {
			v.Grants[key] = true
		}
	}

	for _, team := range r.Form["teams"] {
		if key := normalize.TeamKey(team); key != "" {
			v.Teams = append(v.Teams, key)
		}
	}
	return v
}

// rolesCSV joins the set role flags in precedence order for audit
// metadata.
func rolesCSV(roles map[string]bool) string {
	out := make([]string, 0, len(roles))
	for _, role := range roleChoices {
		if roles[role] {
			out = append(out, role)
		}
	}
	return strings.Join(out, ",")
}

// roleOptions shapes the role checkboxes with their current state.
func roleOptions(checked map[string]bool) []roleOption {
	out := make([]roleOption, 0, len(roleChoices))
	for _, role := range roleChoices {
		out = append(out, roleOption{Name: role, Checked: checked[role]})
	}
	return out
}

// grantOptions shapes the explicit grant checkboxes with their current
// state. Grants outside the palette (edited directly in the database)
// stay untouched only if re-posted; the form shows palette keys only.
func grantOptions(checked map[string]bool) []grantOption {
	out := make([]grantOption, 0, len(grantPalette))
	for _, key := range grantPalette {
		out = append(out, grantOption{Key: key, Checked: checked[key]})
	}
	return out
}

// teamChoices loads the team checkboxes, marking current memberships.
func (h *Handler) teamChoices(ctx context.Context, member []string) ([]teamOption, error) {
	opts, err := teamutil.Options(ctx, h.DB, h.Log)
	if err != nil {
		return nil, err
	}
	on := make(map[string]bool, len(member))
	for _, key := range member {
		on[key] = true
	}
	out := make([]teamOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, teamOption{Key: o.Key, Name: o.Name, Checked: on[o.Key]})
	}
	return out, nil
}

// selectedRoleNames returns the set flags from a checkbox map in
// precedence order, for display.
func selectedRoleNames(roles map[string]bool) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roleChoices {
		if roles[role] {
			out = append(out, role)
		}
	}
	return out
}

// selectedGrantKeys returns set grants in palette order, for display.
func selectedGrantKeys(grants map[string]bool) []string {
	out := make([]string, 0, len(grants))
	for _, key := range grantPalette {
		if grants[key] {
			out = append(out, key)
		}
	}
	return out
}
