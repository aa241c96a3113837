// Package perms resolves effective permissions and decides whether an
// actor may perform a verb on a resource.
//
// A decision runs an ordered list of named rules, each returning Allow,
// Deny, or Abstain. The combinator is:
//
//  1. The provisional rules (actor-present, permission-grant,
//     team-overlay, ownership-overlay) run in order; the first rule
//     that does not abstain fixes the provisional outcome and later
//     provisional rules are not consulted.
//  2. If every provisional rule abstains, the provisional outcome is
//     Allow.
//  3. The service clamp then runs unconditionally. For actors flagged
//     as constrained automation identities it REPLACES the provisional
//     outcome entirely, in both directions: it can deny an action the
//     provisional rules allowed and allow one they denied. For all
//     other actors it abstains and the provisional outcome stands.
//
// This ordering is behavior, not style: the clamp overriding the
// ownership rule's admin bypass (and the permission-grant denial) is
// relied upon by callers, so rules must not be reordered.
package perms

import (
	"fmt"

	"github.com/dalemusser/planhub/internal/domain/models"
)

// Verb is an action an actor can attempt against a resource.
type Verb string

// Verbs understood by the decision procedure.
const (
	VerbRead   Verb = "read"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
	VerbWrite  Verb = "write"
)

// ResourceType is a declared resource kind. Handlers construct
// resources only from these constants, so adding a kind is a visible,
// reviewable change rather than a stray string.
type ResourceType string

// Resource kinds subject to permission checks.
const (
	ResCampaigns     ResourceType = "campaigns"
	ResUsers         ResourceType = "users"
	ResTeams         ResourceType = "teams"
	ResGovernance    ResourceType = "governance"
	ResExport        ResourceType = "export"
	ResReports       ResourceType = "reports"
	ResAISuggestions ResourceType = "ai-suggestions"
	ResTelemetry     ResourceType = "telemetry"
)

// KnownResourceTypes lists every declared resource kind.
var KnownResourceTypes = []ResourceType{
	ResCampaigns, ResUsers, ResTeams, ResGovernance,
	ResExport, ResReports, ResAISuggestions, ResTelemetry,
}

// ParseResourceType maps a raw string onto a declared kind.
func ParseResourceType(s string) (ResourceType, bool) {
	for _, t := range KnownResourceTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Resource is the typed handle describing what an action targets.
type Resource struct {
	Type    ResourceType
	ID      string
	OwnerID string // hex user ID, empty when unowned
	TeamID  string
	Status  string
}

// Record carries the same fields as Resource for the object actually
// being mutated. Both shapes are consulted during a single decision.
type Record struct {
	ID      string
	OwnerID string
	TeamID  string
	Status  string
}

// Permission returns the "type:verb" permission string for the resource.
func (r Resource) Permission(verb Verb) string {
	return string(r.Type) + ":" + string(verb)
}

// Effect is a single rule's vote.
type Effect int

const (
	Abstain Effect = iota
	Allow
	Deny
)

// Decision is the outcome of Can, naming the rule that decided it.
type Decision struct {
	Allowed bool
	Rule    string // name of the deciding rule ("default" when all abstained)
	Reason  string
}

// input bundles everything a rule may consult.
type input struct {
	actor     *models.User
	verb      Verb
	resource  Resource
	record    *Record
	effective Set
}

// rule is one named step of the decision procedure.
type rule struct {
	name string
	eval func(in input) (Effect, string)
}

// provisionalRules run in order under first-non-abstain-wins. The
// service clamp is deliberately not in this list; see Can.
var provisionalRules = []rule{
	{"actor-present", actorPresent},
	{"permission-grant", permissionGrant},
	{"team-overlay", teamOverlay},
	{"ownership-overlay", ownershipOverlay},
}

// serviceClampRule is the terminal override applied after the
// provisional outcome is fixed.
var serviceClampRule = rule{"service-clamp", serviceClamp}

// Can decides whether the actor may perform verb on the resource,
// evaluating the rule list under the combinator documented in the
// package comment. It performs no I/O and returns identical results
// for identical inputs.
func Can(actor *models.User, verb Verb, resource Resource, record *Record, effective Set) Decision {
	in := input{actor: actor, verb: verb, resource: resource, record: record, effective: effective}

	decision := Decision{Allowed: true, Rule: "default", Reason: "no rule denied"}
	for _, ru := range provisionalRules {
		effect, reason := ru.eval(in)
		if effect == Abstain {
			continue
		}
		decision = Decision{Allowed: effect == Allow, Rule: ru.name, Reason: reason}
		break
	}

	// Terminal override: replaces the provisional outcome for
	// constrained automation identities, in both directions.
	if effect, reason := serviceClampRule.eval(in); effect != Abstain {
		decision = Decision{Allowed: effect == Allow, Rule: serviceClampRule.name, Reason: reason}
	}

	return decision
}

// actorPresent denies when no actor is attached to the request.
func actorPresent(in input) (Effect, string) {
	if in.actor == nil {
		return Deny, "no actor"
	}
	return Abstain, ""
}

// permissionGrant denies unless the effective set contains the
// "type:verb" permission for the attempted action.
func permissionGrant(in input) (Effect, string) {
	needed := in.resource.Permission(in.verb)
	if !in.effective.Has(needed) {
		return Deny, fmt.Sprintf("missing permission %q", needed)
	}
	return Abstain, ""
}

// teamOverlay denies when the record is scoped to a team the actor does
// not belong to. When the record has no team scope, or the actor has no
// team memberships at all, the overlay abstains: that default-open
// behavior is deliberate and preserved as-is (flagged for product
// review, not tightened here).
func teamOverlay(in input) (Effect, string) {
	if in.record == nil || in.record.TeamID == "" {
		return Abstain, ""
	}
	if in.actor == nil || len(in.actor.Teams) == 0 {
		return Abstain, ""
	}
	if !in.actor.OnTeam(in.record.TeamID) {
		return Deny, fmt.Sprintf("record is scoped to team %q", in.record.TeamID)
	}
	return Abstain, ""
}

// ownershipOverlay applies only to update and delete. Administrators
// are allowed outright; everyone else is denied when the record or
// resource names a different owner.
func ownershipOverlay(in input) (Effect, string) {
	if in.verb != VerbUpdate && in.verb != VerbDelete {
		return Abstain, ""
	}
	if in.actor.IsAdmin() {
		return Allow, "administrator bypass"
	}
	actorID := in.actor.ID.Hex()
	if in.record != nil && in.record.OwnerID != "" && in.record.OwnerID != actorID {
		return Deny, "record is owned by another user"
	}
	if in.resource.OwnerID != "" && in.resource.OwnerID != actorID {
		return Deny, "resource is owned by another user"
	}
	return Abstain, ""
}

// clampVerbs and clampResources bound what a constrained automation
// identity may ever do, regardless of its grants.
var clampVerbs = map[Verb]bool{
	VerbRead:   true,
	VerbCreate: true,
	VerbUpdate: true,
}

var clampResources = map[ResourceType]bool{
	ResCampaigns:     true,
	ResAISuggestions: true,
	ResTelemetry:     true,
}

// serviceClamp replaces the provisional outcome for service accounts:
// allowed exactly when the verb and resource kind fall inside the
// clamp, denied otherwise.
func serviceClamp(in input) (Effect, string) {
	if in.actor == nil || !in.actor.IsService() {
		return Abstain, ""
	}
	if clampVerbs[in.verb] && clampResources[in.resource.Type] {
		return Allow, "within service-account clamp"
	}
	return Deny, fmt.Sprintf("service accounts may not %s %s", in.verb, in.resource.Type)
}
