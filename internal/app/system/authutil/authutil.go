// Package authutil validates account credentials and the auth settings
// shared by the login flow and the user administration forms.
//
// Email is the login identifier for every account. The auth method only
// selects how the credential is verified: "password" accounts carry a
// bcrypt hash, "google" accounts defer to the OAuth callback.
package authutil

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dalemusser/planhub/internal/domain/models"
)

// Password length bounds. The maximum matches the bcrypt input limit;
// bcrypt rejects passwords longer than 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("email address is not valid")
	ErrPasswordRequired = errors.New("an initial password is required for password accounts")
	ErrBadAuthMethod    = errors.New("unrecognized auth method")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	ErrPasswordCommon   = errors.New("password is too common")
)

// commonPasswords are rejected outright, compared case-insensitively.
var commonPasswords = map[string]struct{}{
	"123456":   {},
	"1234567":  {},
	"12345678": {},
	"password": {},
	"qwerty":   {},
	"abc123":   {},
	"iloveyou": {},
	"letmein":  {},
	"trustno1": {},
	"dragon":   {},
	"monkey":   {},
	"baseball": {},
	"football": {},
	"welcome":  {},
	"sunshine": {},
	"shadow":   {},
	"superman": {},
	"master":   {},
}

// AuthInput is the auth-related slice of a user create or edit form.
type AuthInput struct {
	Method       string
	Email        string
	TempPassword string
	IsEdit       bool // editing an existing account; blank password keeps the current one
}

// Resolved holds the validated auth settings ready to persist.
// PasswordHash is nil when no new password should be stored.
type Resolved struct {
	Email        string
	PasswordHash *string
}

// ValidateAndResolve checks an auth form slice and hashes the password
// when one was supplied. Password accounts require a password on
// create; on edit a blank password leaves the stored hash untouched.
func ValidateAndResolve(in AuthInput) (Resolved, error) {
	method := strings.TrimSpace(in.Method)
	if !models.ValidAuthMethod(method) {
		return Resolved{}, ErrBadAuthMethod
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return Resolved{}, ErrEmailRequired
	}
	if !isValidEmail(email) {
		return Resolved{}, ErrInvalidEmail
	}

	res := Resolved{Email: email}
	if method != models.AuthPassword {
		return res, nil
	}

	if in.TempPassword == "" {
		if in.IsEdit {
			return res, nil
		}
		return Resolved{}, ErrPasswordRequired
	}
	if err := ValidatePassword(in.TempPassword); err != nil {
		return Resolved{}, err
	}
	hash, err := HashPassword(in.TempPassword)
	if err != nil {
		return Resolved{}, err
	}
	res.PasswordHash = &hash
	return res, nil
}

// isValidEmail checks the structural shape of an email address: one @,
// a non-empty local part, and a domain with an interior dot.
func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	if dot <= 0 || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}

// ValidatePassword enforces the password policy: length bounds plus a
// case-insensitive check against well-known weak passwords.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if _, bad := commonPasswords[strings.ToLower(password)]; bad {
		return ErrPasswordCommon
	}
	return nil
}

// PasswordRules describes the password policy for display next to
// password inputs.
func PasswordRules() string {
	return fmt.Sprintf("Passwords must be %d to %d characters and must not be a commonly used password.",
		MinPasswordLength, MaxPasswordLength)
}

// HashPassword returns a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// TemplateData exposes auth-method conditionals to user form views.
type TemplateData struct {
	Auth string
}

func (d TemplateData) IsPasswordMethod() bool { return d.Auth == models.AuthPassword }
func (d TemplateData) IsGoogleMethod() bool   { return d.Auth == models.AuthGoogle }
