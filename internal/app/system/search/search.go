// internal/app/system/search/search.go
package search

import "strings"

// EmailPivotOK reports whether it is safe and useful to pivot a paged
// user search from name-based sorting to email-based sorting.
//
// Pivot when:
//   - the user is clearly searching by email (the query contains '@'), and
//   - the result set is constrained by status (active/suspended), and
//   - a team filter is in place, keeping the indexed path selective.
//
// Typical usage in team-scoped lists:
//
//	pivot := search.EmailPivotOK(query, status, teamKey != "")
//	sortField := "display_name_ci"
//	if pivot {
//	    sortField = "email"
//	}
//
// For the global user list use EmailPivotNoTeamOK.
func EmailPivotOK(query, status string, hasTeam bool) bool {
	qHasAt := strings.Contains(query, "@")
	statusFixed := equalsAnyFold(status, "active", "suspended")
	return qHasAt && statusFixed && hasTeam
}

// EmailPivotNoTeamOK is the variant for lists with no team constraint,
// such as the admin view across all accounts. Requires that the query
// looks like an email and the status filter is constrained.
func EmailPivotNoTeamOK(query, status string) bool {
	qHasAt := strings.Contains(query, "@")
	statusFixed := equalsAnyFold(status, "active", "suspended")
	return qHasAt && statusFixed
}

func equalsAnyFold(s string, vals ...string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, v := range vals {
		if s == strings.ToLower(v) {
			return true
		}
	}
	return false
}
