// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
// The role is normalized to lowercase for consistent comparison.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed for security.
		// This should not happen in normal operation; indicates session corruption.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsEditor reports whether the current request's user is an editor.
func IsEditor(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleEditor
}

// IsReviewer reports whether the current request's user is a reviewer.
func IsReviewer(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleReviewer
}

// IsViewer reports whether the current request's user is a viewer.
func IsViewer(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleViewer
}

// IsServiceAccount reports whether the current request's user is a
// service account. Service accounts stay confined to the automation
// surface no matter what else their roles say.
func IsServiceAccount(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleService
}

// CanModifyCampaigns reports whether the current user may create or edit
// campaign content. Admins and editors can.
func CanModifyCampaigns(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == models.RoleAdmin || role == models.RoleEditor)
}

// CanReviewCampaigns reports whether the current user may decide
// governance reviews. Admins and reviewers can.
func CanReviewCampaigns(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == models.RoleAdmin || role == models.RoleReviewer)
}
