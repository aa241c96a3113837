// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"html/template"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/authutil"
	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

// profileData is the view model for the account page.
type profileData struct {
	viewdata.BaseVM

	Name       string
	Email      string
	AuthMethod string
	Role       string
	Tier       string
	Teams      []string

	// Export identity section. ExpectedWrike is the exact value the
	// export preflight accepts for this account.
	WrikeName     string
	WrikeOK       bool
	ExpectedWrike string

	// Password section, only shown for password accounts.
	ShowPasswordSection bool
	PasswordRules       string

	Error   template.HTML
	Success template.HTML
}

// buildData assembles the page view model from an account document.
func (h *Handler) buildData(r *http.Request, user *models.User) profileData {
	name := user.DisplayName
	if name == "" {
		name = user.FullName()
	}
	tier := user.Tier
	if tier == "" {
		tier = models.TierStandard
	}
	method := user.AuthMethod
	if method == "" {
		method = models.AuthPassword
	}

	return profileData{
		BaseVM:              viewdata.NewBaseVM(r, h.DB, "Profile", "/dashboard"),
		Name:                name,
		Email:               user.Email,
		AuthMethod:          formatAuthMethod(method),
		Role:                user.PrimaryRole(),
		Tier:                tier,
		Teams:               user.Teams,
		WrikeName:           user.WrikeName,
		WrikeOK:             user.WrikeNameValid(),
		ExpectedWrike:       user.FullName(),
		ShowPasswordSection: method == models.AuthPassword,
		PasswordRules:       authutil.PasswordRules(),
	}
}

// ServeProfile renders the signed-in user's account page.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.requireAccount(ctx, w, r)
	if !ok {
		return
	}

	data := h.buildData(r, user)
	switch query.Get(r, "success") {
	case "wrike":
		data.Success = "Export identity updated."
	case "password":
		data.Success = "Password changed."
	}

	templates.Render(w, r, "profile", data)
}

// renderWithError re-renders the account page with a form error.
func (h *Handler) renderWithError(w http.ResponseWriter, r *http.Request, user *models.User, msg string) {
	data := h.buildData(r, user)
	data.Error = template.HTML(msg)
	templates.Render(w, r, "profile", data)
}

// HandleUpdateWrike saves the user's own export identity. Exports only
// pass preflight when this value exactly matches the account's first
// and last name, so the page shows the expected value alongside the
// form.
func (h *Handler) HandleUpdateWrike(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.requireAccount(ctx, w, r)
	if !ok {
		return
	}

	wrike := normalize.Name(r.FormValue("wrike_name"))
	if len(wrike) > 200 {
		h.renderWithError(w, r, user, "Export identity must be 200 characters or fewer.")
		return
	}

	if wrike == user.WrikeName {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	if err := h.Users.UpdateWrikeName(ctx, user.ID, wrike); err != nil {
		h.ErrLog.LogServerError(w, r, "update wrike name failed", err, "Database error while saving your export identity.", "/profile")
		return
	}

	h.AuditLog.UserUpdated(ctx, r, user.ID, user.ID, "wrike_name")
	http.Redirect(w, r, "/profile?success=wrike", http.StatusSeeOther)
}

// HandleChangePassword processes the password change form for
// password accounts.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.requireAccount(ctx, w, r)
	if !ok {
		return
	}

	method := user.AuthMethod
	if method == "" {
		method = models.AuthPassword
	}
	if method != models.AuthPassword {
		h.renderWithError(w, r, user, "Password changes are only available for password sign-in accounts.")
		return
	}

	current := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")

	if user.PasswordHash == "" || !authutil.CheckPassword(current, user.PasswordHash) {
		h.renderWithError(w, r, user, "Current password is incorrect.")
		return
	}
	if err := authutil.ValidatePassword(newPassword); err != nil {
		h.renderWithError(w, r, user, err.Error())
		return
	}
	if newPassword != confirm {
		h.renderWithError(w, r, user, "New passwords do not match.")
		return
	}
	if authutil.CheckPassword(newPassword, user.PasswordHash) {
		h.renderWithError(w, r, user, "New password must be different from your current password.")
		return
	}

	hash, err := authutil.HashPassword(newPassword)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Failed to update your password.", "/profile")
		return
	}
	if err := h.Users.SetPassword(ctx, user.ID, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "set password failed", err, "Failed to update your password.", "/profile")
		return
	}

	h.AuditLog.UserUpdated(ctx, r, user.ID, user.ID, "password")
	http.Redirect(w, r, "/profile?success=password", http.StatusSeeOther)
}

func formatAuthMethod(method string) string {
	switch method {
	case models.AuthPassword:
		return "Password"
	case models.AuthGoogle:
		return "Google"
	default:
		return method
	}
}
