// internal/app/system/inputval/inputval.go

// Package inputval validates form input before it reaches a store.
// Struct fields opt in through `validate` tags; labels for messages come
// from `label` tags. Standalone predicates back the tag rules and can be
// called directly.
package inputval

import "strings"

// IsValidEmail checks the address shape used on admin forms. It accepts
// single-label domains (useful against dev hosts) but rejects leading,
// trailing, and consecutive dots in either part, unlike the looser check
// the login form applies.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') {
		return false
	}

	local, domain := email[:at], email[at+1:]
	if !validLocalPart(local) || !validDomainPart(domain) {
		return false
	}
	return true
}

func validLocalPart(s string) bool {
	if s == "" || hasBadDots(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!#$%&'*+-/=?^_`{|}~.", r):
		default:
			return false
		}
	}
	return true
}

func validDomainPart(s string) bool {
	if s == "" || hasBadDots(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

func hasBadDots(s string) bool {
	return strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..")
}
