package perms_test

import (
	"testing"

	"github.com/dalemusser/planhub/internal/app/system/perms"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Helper to build a user with the given role flags set.
func userWithRoles(roles ...string) *models.User {
	flags := make(map[string]bool, len(roles))
	for _, r := range roles {
		flags[r] = true
	}
	return &models.User{
		ID:    primitive.NewObjectID(),
		Roles: flags,
	}
}

// Test Effective

func TestEffective_UnionContainsRoleAndTier(t *testing.T) {
	role := &models.RoleConfig{Name: "editor", Permissions: []string{"campaigns:read", "campaigns:update"}}
	tier := &models.RoleConfig{Name: "extended", Permissions: []string{"export:write", "campaigns:read"}}
	actor := userWithRoles("editor")

	set := perms.Effective(role, tier, actor)

	for _, p := range role.Permissions {
		if !set.Has(p) {
			t.Errorf("effective set missing role permission %q", p)
		}
	}
	for _, p := range tier.Permissions {
		if !set.Has(p) {
			t.Errorf("effective set missing tier permission %q", p)
		}
	}
}

func TestEffective_RolePlusTierPlusGrants(t *testing.T) {
	// Role grants two permissions, tier grants one; the union has
	// exactly three entries and satisfies an AND over both axes.
	role := &models.RoleConfig{Name: "editor", Permissions: []string{"campaigns:read", "campaigns:update"}}
	tier := &models.RoleConfig{Name: "extended", Permissions: []string{"export:write"}}
	actor := userWithRoles("editor")

	set := perms.Effective(role, tier, actor)

	if len(set) != 3 {
		t.Errorf("effective set size: got %d, want 3 (%v)", len(set), set.Slice())
	}
	if !set.Has("campaigns:update", "export:write") {
		t.Error("expected AND check across role and tier permissions to pass")
	}
}

func TestEffective_ExplicitGrantsIncluded(t *testing.T) {
	actor := userWithRoles("viewer")
	actor.Grants = map[string]bool{
		"export:read":  true,
		"export:write": false, // flag present but off: contributes nothing
	}

	set := perms.Effective(nil, nil, actor)

	if !set.Has("export:read") {
		t.Error("expected explicit grant to be present")
	}
	if set.Has("export:write") {
		t.Error("grant flag set false must contribute nothing")
	}
}

func TestEffective_NilInputs(t *testing.T) {
	set := perms.Effective(nil, nil, nil)
	if len(set) != 0 {
		t.Errorf("expected empty set, got %v", set.Slice())
	}
}

// Test Has / HasAny semantics

func TestHas_AllRequired(t *testing.T) {
	set := perms.NewSet("a:read", "b:write")

	if !set.Has("a:read", "b:write") {
		t.Error("Has with both present: got false, want true")
	}
	if set.Has("a:read", "c:read") {
		t.Error("Has with one missing: got true, want false")
	}
}

func TestHasAny_AnySuffices(t *testing.T) {
	set := perms.NewSet("a:read", "b:write")

	if !set.HasAny("c:read", "b:write") {
		t.Error("HasAny with one present: got false, want true")
	}
	if set.HasAny("c:read", "d:read") {
		t.Error("HasAny with none present: got true, want false")
	}
}

func TestHas_MatchesConjunctionOfSingles(t *testing.T) {
	// Has(set, a, b) must equal Has(set, a) && Has(set, b), and
	// HasAny(set, a, b) must equal Has(set, a) || Has(set, b).
	set := perms.NewSet("campaigns:read")

	pairs := [][2]string{
		{"campaigns:read", "campaigns:update"},
		{"campaigns:read", "campaigns:read"},
		{"campaigns:update", "export:write"},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		wantAnd := set.Has(a) && set.Has(b)
		wantOr := set.Has(a) || set.Has(b)
		if got := set.Has(a, b); got != wantAnd {
			t.Errorf("Has(%q, %q): got %v, want %v", a, b, got, wantAnd)
		}
		if got := set.HasAny(a, b); got != wantOr {
			t.Errorf("HasAny(%q, %q): got %v, want %v", a, b, got, wantOr)
		}
	}
}

func TestHas_EmptyNeededIsTrue(t *testing.T) {
	set := perms.NewSet("a:read")
	if !set.Has() {
		t.Error("Has with no arguments: got false, want true")
	}
	if set.HasAny() {
		t.Error("HasAny with no arguments: got true, want false")
	}
}

// Test Can: actor and permission rules

func TestCan_DeniesMissingActor(t *testing.T) {
	set := perms.NewSet("campaigns:read")
	d := perms.Can(nil, perms.VerbRead, perms.Resource{Type: perms.ResCampaigns}, nil, set)

	if d.Allowed {
		t.Error("expected deny for missing actor")
	}
	if d.Rule != "actor-present" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "actor-present")
	}
}

func TestCan_DeniesMissingPermission(t *testing.T) {
	actor := userWithRoles("viewer")
	set := perms.NewSet("campaigns:read")

	d := perms.Can(actor, perms.VerbUpdate, perms.Resource{Type: perms.ResCampaigns}, nil, set)

	if d.Allowed {
		t.Error("expected deny without campaigns:update")
	}
	if d.Rule != "permission-grant" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "permission-grant")
	}
}

func TestCan_AllowsWhenNoRuleDenies(t *testing.T) {
	actor := userWithRoles("viewer")
	set := perms.NewSet("campaigns:read")

	d := perms.Can(actor, perms.VerbRead, perms.Resource{Type: perms.ResCampaigns}, nil, set)

	if !d.Allowed {
		t.Errorf("expected allow, denied by %q (%s)", d.Rule, d.Reason)
	}
}

// Test Can: team overlay

func TestCan_TeamOverlay_DeniesNonMember(t *testing.T) {
	actor := userWithRoles("editor")
	actor.Teams = []string{"brand"}
	set := perms.NewSet("campaigns:read")
	rec := &perms.Record{TeamID: "growth"}

	d := perms.Can(actor, perms.VerbRead, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if d.Allowed {
		t.Error("expected deny for record scoped to another team")
	}
	if d.Rule != "team-overlay" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "team-overlay")
	}
}

func TestCan_TeamOverlay_AllowsMember(t *testing.T) {
	actor := userWithRoles("editor")
	actor.Teams = []string{"growth", "brand"}
	set := perms.NewSet("campaigns:read")
	rec := &perms.Record{TeamID: "growth"}

	d := perms.Can(actor, perms.VerbRead, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if !d.Allowed {
		t.Errorf("expected allow for team member, denied by %q", d.Rule)
	}
}

func TestCan_TeamOverlay_SkippedWhenRecordUnscoped(t *testing.T) {
	actor := userWithRoles("editor")
	actor.Teams = []string{"brand"}
	set := perms.NewSet("campaigns:read")
	rec := &perms.Record{} // no team scope

	d := perms.Can(actor, perms.VerbRead, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if !d.Allowed {
		t.Errorf("expected allow when record has no team scope, denied by %q", d.Rule)
	}
}

func TestCan_TeamOverlay_SkippedWhenActorHasNoTeams(t *testing.T) {
	// Default-open behavior: an actor with no team memberships passes
	// the overlay even for team-scoped records.
	actor := userWithRoles("editor")
	set := perms.NewSet("campaigns:read")
	rec := &perms.Record{TeamID: "growth"}

	d := perms.Can(actor, perms.VerbRead, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if !d.Allowed {
		t.Errorf("expected allow when actor has no teams, denied by %q", d.Rule)
	}
}

// Test Can: ownership overlay

func TestCan_Ownership_AdminDeletesOtherOwned(t *testing.T) {
	admin := userWithRoles("admin")
	set := perms.NewSet("campaigns:delete")
	rec := &perms.Record{OwnerID: primitive.NewObjectID().Hex()}

	d := perms.Can(admin, perms.VerbDelete, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if !d.Allowed {
		t.Errorf("expected admin bypass, denied by %q (%s)", d.Rule, d.Reason)
	}
	if d.Rule != "ownership-overlay" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "ownership-overlay")
	}
}

func TestCan_Ownership_NonAdminDeniedOtherOwned(t *testing.T) {
	actor := userWithRoles("editor")
	set := perms.NewSet("campaigns:delete")
	rec := &perms.Record{OwnerID: primitive.NewObjectID().Hex()}

	d := perms.Can(actor, perms.VerbDelete, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if d.Allowed {
		t.Error("expected deny for non-admin deleting another user's record")
	}
	if d.Rule != "ownership-overlay" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "ownership-overlay")
	}
}

func TestCan_Ownership_OwnerMayUpdate(t *testing.T) {
	actor := userWithRoles("editor")
	set := perms.NewSet("campaigns:update")
	rec := &perms.Record{OwnerID: actor.ID.Hex()}

	d := perms.Can(actor, perms.VerbUpdate, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if !d.Allowed {
		t.Errorf("expected owner to update own record, denied by %q", d.Rule)
	}
}

func TestCan_Ownership_ResourceOwnerConsulted(t *testing.T) {
	actor := userWithRoles("editor")
	set := perms.NewSet("campaigns:update")
	res := perms.Resource{Type: perms.ResCampaigns, OwnerID: primitive.NewObjectID().Hex()}

	d := perms.Can(actor, perms.VerbUpdate, res, nil, set)

	if d.Allowed {
		t.Error("expected deny when the resource names another owner")
	}
}

func TestCan_Ownership_NotAppliedToRead(t *testing.T) {
	actor := userWithRoles("viewer")
	set := perms.NewSet("campaigns:read")
	rec := &perms.Record{OwnerID: primitive.NewObjectID().Hex()}

	d := perms.Can(actor, perms.VerbRead, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if !d.Allowed {
		t.Errorf("ownership must not gate reads, denied by %q", d.Rule)
	}
}

// Test Can: service-account clamp

func TestCan_ServiceClamp_DeniesDelete(t *testing.T) {
	svc := userWithRoles("service")
	set := perms.NewSet("campaigns:delete")
	rec := &perms.Record{OwnerID: svc.ID.Hex()} // even owning the record

	d := perms.Can(svc, perms.VerbDelete, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if d.Allowed {
		t.Error("expected clamp to deny delete for a service account")
	}
	if d.Rule != "service-clamp" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "service-clamp")
	}
}

func TestCan_ServiceClamp_DeniesOutsideResources(t *testing.T) {
	svc := userWithRoles("service")
	set := perms.NewSet("users:read")

	d := perms.Can(svc, perms.VerbRead, perms.Resource{Type: perms.ResUsers}, nil, set)

	if d.Allowed {
		t.Error("expected clamp to deny reads outside its resource list")
	}
}

func TestCan_ServiceClamp_ReplacesEarlierDeny(t *testing.T) {
	// The clamp replaces the provisional outcome in both directions:
	// a service account with no grants at all is still allowed inside
	// the clamp's verb/resource window.
	svc := userWithRoles("service")
	empty := perms.NewSet()

	d := perms.Can(svc, perms.VerbUpdate, perms.Resource{Type: perms.ResCampaigns}, nil, empty)

	if !d.Allowed {
		t.Errorf("expected clamp to replace permission-grant deny, denied by %q", d.Rule)
	}
	if d.Rule != "service-clamp" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "service-clamp")
	}
}

func TestCan_ServiceClamp_OverridesAdminBypass(t *testing.T) {
	// An identity flagged both admin and service is still clamped:
	// rule order is load-bearing.
	both := userWithRoles("admin", "service")
	set := perms.NewSet("campaigns:delete")
	rec := &perms.Record{OwnerID: primitive.NewObjectID().Hex()}

	d := perms.Can(both, perms.VerbDelete, perms.Resource{Type: perms.ResCampaigns}, rec, set)

	if d.Allowed {
		t.Error("expected clamp to override the admin ownership bypass")
	}
	if d.Rule != "service-clamp" {
		t.Errorf("Rule: got %q, want %q", d.Rule, "service-clamp")
	}
}

func TestCan_ServiceClamp_AllowsTelemetryRead(t *testing.T) {
	svc := userWithRoles("service")
	set := perms.NewSet("telemetry:read")

	d := perms.Can(svc, perms.VerbRead, perms.Resource{Type: perms.ResTelemetry}, nil, set)

	if !d.Allowed {
		t.Errorf("expected allow inside clamp window, denied by %q", d.Rule)
	}
}

// Test Can: determinism

func TestCan_DeterministicForSameInput(t *testing.T) {
	actor := userWithRoles("editor")
	set := perms.NewSet("campaigns:update")
	rec := &perms.Record{OwnerID: actor.ID.Hex(), TeamID: "growth"}
	res := perms.Resource{Type: perms.ResCampaigns, ID: "c1"}

	first := perms.Can(actor, perms.VerbUpdate, res, rec, set)
	for i := 0; i < 10; i++ {
		again := perms.Can(actor, perms.VerbUpdate, res, rec, set)
		if again != first {
			t.Fatalf("decision changed between identical calls: %+v vs %+v", first, again)
		}
	}
}

// Test ParseResourceType

func TestParseResourceType(t *testing.T) {
	tests := []struct {
		input string
		want  perms.ResourceType
		ok    bool
	}{
		{"campaigns", perms.ResCampaigns, true},
		{"ai-suggestions", perms.ResAISuggestions, true},
		{"telemetry", perms.ResTelemetry, true},
		{"widgets", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := perms.ParseResourceType(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseResourceType(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
