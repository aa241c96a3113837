// internal/app/features/users/new.go
package users

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/userpolicy"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/authutil"
	"github.com/dalemusser/planhub/internal/app/system/formutil"
	"github.com/dalemusser/planhub/internal/app/system/inputval"
	"github.com/dalemusser/planhub/internal/app/system/limits"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ServeNew renders the "New User" form with empty role and grant
// palettes and the sensible defaults: password sign-in, standard tier,
// active status.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/users")
		return
	}
	allowed, err := userpolicy.CanCreate(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve create permission failed", err, "Unable to check permissions.", "/users")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to create accounts.", "/users")
		return
	}

	teams, err := h.teamChoices(ctx, nil)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load team options failed", err, "Unable to load the form.", "/users")
		return
	}

	data := formData{
		AuthMethod:    models.AuthPassword,
		Tier:          models.TierStandard,
		Status:        models.UserActive,
		Roles:         roleOptions(nil),
		Grants:        grantOptions(nil),
		Teams:         teams,
		PasswordRules: authutil.PasswordRules(),
	}
	formutil.SetBase(&data.Base, r, h.DB, "New User", "/users")

	templates.Render(w, r, "users_new", data)
}

// HandleCreate processes the New User form submission.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxUserFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/users")
		return
	}

	v := readForm(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/users")
		return
	}
	allowed, err := userpolicy.CanCreate(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve create permission failed", err, "Unable to check permissions.", "/users")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to create accounts.", "/users")
		return
	}

	teams, err := h.teamChoices(ctx, v.Teams)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load team options failed", err, "Unable to load the form.", "/users")
		return
	}

	renderWithError := func(msg string) {
		data := formData{
			FirstName:     v.FirstName,
			LastName:      v.LastName,
			DisplayName:   v.DisplayName,
			Email:         v.Email,
			WrikeName:     v.WrikeName,
			AuthMethod:    v.AuthMethod,
			Tier:          v.Tier,
			Status:        v.Status,
			Roles:         roleOptions(v.Roles),
			Grants:        grantOptions(v.Grants),
			Teams:         teams,
			PasswordRules: authutil.PasswordRules(),
		}
		formutil.SetBase(&data.Base, r, h.DB, "New User", "/users")
		data.SetError(msg)
		templates.Render(w, r, "users_new", data)
	}

	input := accountInput{
		FirstName: v.FirstName, LastName: v.LastName, DisplayName: v.DisplayName,
		Email: v.Email, WrikeName: v.WrikeName, AuthMethod: v.AuthMethod,
	}
	if result := inputval.Validate(input); result.HasErrors() {
		renderWithError(result.First())
		return
	}
	if len(v.Roles) == 0 {
		renderWithError("Select at least one role.")
		return
	}
	if !models.ValidTier(v.Tier) {
		renderWithError("Select a valid tier.")
		return
	}
	if !validStatus(v.Status) {
		renderWithError("Select a valid status.")
		return
	}

	resolved, err := authutil.ValidateAndResolve(authutil.AuthInput{
		Method:       v.AuthMethod,
		Email:        v.Email,
		TempPassword: v.Password,
	})
	if err != nil {
		renderWithError(err.Error())
		return
	}

	u := models.User{
		Email:       resolved.Email,
		FirstName:   v.FirstName,
		LastName:    v.LastName,
		DisplayName: v.DisplayName,
		WrikeName:   v.WrikeName,
		Roles:       v.Roles,
		Grants:      v.Grants,
		Teams:       v.Teams,
		Tier:        v.Tier,
		Status:      v.Status,
		AuthMethod:  v.AuthMethod,
	}
	if resolved.PasswordHash != nil {
		u.PasswordHash = *resolved.PasswordHash
	}

	created, err := h.Users.Create(ctx, u)
	if err != nil {
		msg := "Database error while creating the account."
		if err == userstore.ErrDuplicateEmail {
			msg = "A user with that email already exists."
		} else {
			h.Log.Error("create user failed", zap.Error(err), zap.String("email", resolved.Email))
		}
		renderWithError(msg)
		return
	}

	h.AuditLog.UserCreated(ctx, r, actor.ID, created.ID, rolesCSV(v.Roles))

	http.Redirect(w, r, backToUsersURL(r), http.StatusSeeOther)
}
