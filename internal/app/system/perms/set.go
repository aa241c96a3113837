// internal/app/system/perms/set.go
package perms

import (
	"sort"

	"github.com/dalemusser/planhub/internal/domain/models"
)

// Set is an effective permission set: the flattened union of role
// grants, tier grants, and explicit per-user grants. Sets are derived
// values; they are recomputed for every check and never stored or
// cached across requests.
type Set map[string]struct{}

// NewSet builds a Set from permission strings.
func NewSet(perms ...string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Effective computes the actor's effective permission set:
//
//	role.Permissions ∪ tier.Permissions ∪ actor.Grants
//
// The union is order-independent and total: nil role, tier, or actor
// contribute nothing, and grant flags set false contribute nothing.
// There is no subtraction or override primitive at this layer.
func Effective(role, tier *models.RoleConfig, actor *models.User) Set {
	s := make(Set)
	if role != nil {
		for _, p := range role.Permissions {
			s[p] = struct{}{}
		}
	}
	if tier != nil {
		for _, p := range tier.Permissions {
			s[p] = struct{}{}
		}
	}
	if actor != nil {
		for g, on := range actor.Grants {
			if on {
				s[g] = struct{}{}
			}
		}
	}
	return s
}

// Has reports whether every one of the needed permissions is present
// (AND semantics). An empty needed list is trivially satisfied.
func (s Set) Has(needed ...string) bool {
	for _, n := range needed {
		if _, ok := s[n]; !ok {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one of the needed permissions is
// present (OR semantics). An empty needed list is never satisfied.
//
// Has and HasAny are deliberately distinct; confusing AND with OR here
// is a known correctness bug class, so both carry their own tests.
func (s Set) HasAny(needed ...string) bool {
	for _, n := range needed {
		if _, ok := s[n]; ok {
			return true
		}
	}
	return false
}

// Slice returns the permissions in sorted order, for display.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
