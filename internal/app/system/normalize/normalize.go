// internal/app/system/normalize/normalize.go

// Package normalize contains small helpers that canonicalize user input
// before it is stored or compared. Stores call these on every write so
// equality checks (email lookups, role comparisons) never depend on how
// a form happened to be filled in.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// AuthMethod lowercases and trims an auth method value.
func AuthMethod(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status lowercases and trims a lifecycle status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role lowercases and trims a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tier lowercases and trims a tier name.
func Tier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-text query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// TeamKey lowercases and trims a team key so membership comparisons are
// exact regardless of form input.
func TeamKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
