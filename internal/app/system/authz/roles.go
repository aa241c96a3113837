// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/planhub/internal/app/system/normalize"
)

// HasAnyRole reports whether the current request's user holds any of
// the given primary roles. A signed-out request never matches. Note
// this consults the session's primary role, not the full role flag
// map; use the resolver for permission-level decisions.
func HasAnyRole(r *http.Request, roles ...string) bool {
	cur, ok := Role(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if cur == normalize.Role(want) {
			return true
		}
	}
	return false
}

// HasRole is a convenience wrapper for a single role.
func HasRole(r *http.Request, role string) bool {
	return HasAnyRole(r, role)
}

// Role returns the current user's primary role (lowercased) and
// whether a user is present.
func Role(r *http.Request) (string, bool) {
	role, _, _, ok := UserCtx(r)
	return strings.ToLower(role), ok
}
