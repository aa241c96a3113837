// internal/app/system/inputval/validators.go
package inputval

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidAuthMethod reports whether method names a supported sign-in
// method. Input is trimmed and case-folded first.
func IsValidAuthMethod(method string) bool {
	return models.ValidAuthMethod(strings.ToLower(strings.TrimSpace(method)))
}

// AllowedAuthMethodsList returns the canonical method names in the order
// forms present them.
func AllowedAuthMethodsList() []string {
	return []string{models.AuthPassword, models.AuthGoogle}
}

// IsValidHTTPURL accepts absolute http or https URLs only.
func IsValidHTTPURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// IsValidObjectID reports whether id is a 24-character hex ObjectID.
func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	return err == nil
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string
	Message string
}

// Result collects field errors in declaration order.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first error message, or "" when none.
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

func (r *Result) add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// Validate applies the `validate` tag rules to every string field of v
// (struct or pointer to struct). Rules: required, max=N, email,
// authmethod, httpurl, objectid. A field reports at most one error; rules
// other than required skip empty values.
func Validate(v interface{}) *Result {
	res := &Result{}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return res
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("validate")
		if tag == "" || f.Type.Kind() != reflect.String {
			continue
		}
		label := f.Tag.Get("label")
		if label == "" {
			label = f.Name
		}

		value := strings.TrimSpace(rv.Field(i).String())

		for _, rule := range strings.Split(tag, ",") {
			rule = strings.TrimSpace(rule)
			if msg := applyRule(rule, label, value); msg != "" {
				res.add(f.Name, msg)
				break
			}
		}
	}
	return res
}

func applyRule(rule, label, value string) string {
	if rule == "required" {
		if value == "" {
			return label + " is required."
		}
		return ""
	}

	// Remaining rules only judge non-empty values.
	if value == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(rule, "max="):
		n, err := strconv.Atoi(strings.TrimPrefix(rule, "max="))
		if err == nil && utf8.RuneCountInString(value) > n {
			return fmt.Sprintf("%s must be at most %d characters.", label, n)
		}
	case rule == "email":
		if !IsValidEmail(value) {
			return "A valid email address is required."
		}
	case rule == "authmethod":
		if !IsValidAuthMethod(value) {
			return label + " must be a supported sign-in method."
		}
	case rule == "httpurl":
		if !IsValidHTTPURL(value) {
			return label + " must be an http or https URL."
		}
	case rule == "objectid":
		if !IsValidObjectID(value) {
			return label + " must be a valid ID."
		}
	}
	return ""
}
