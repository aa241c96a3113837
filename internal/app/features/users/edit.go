// internal/app/features/users/edit.go
package users

import (
	"context"
	"net/http"
	"sort"
	"strings"

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
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeEdit renders the Edit User form populated from the stored
// account. Email is the login identifier and stays read-only here.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.targetFromPath(ctx, w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/users")
		return
	}
	allowed, err := userpolicy.CanEdit(ctx, h.Resolver, actor, target.ID.Hex())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve edit permission failed", err, "Unable to check permissions.", "/users")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to edit accounts.", "/users")
		return
	}

	teams, err := h.teamChoices(ctx, target.Teams)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load team options failed", err, "Unable to load the form.", "/users")
		return
	}

	tier := target.Tier
	if tier == "" {
		tier = models.TierStandard
	}
	authMethod := target.AuthMethod
	if authMethod == "" {
		authMethod = models.AuthPassword
	}

	data := formData{
		ID:            target.ID.Hex(),
		FirstName:     target.FirstName,
		LastName:      target.LastName,
		DisplayName:   target.DisplayName,
		Email:         target.Email,
		WrikeName:     target.WrikeName,
		AuthMethod:    authMethod,
		Tier:          tier,
		Status:        target.Status,
		Roles:         roleOptions(target.Roles),
		Grants:        grantOptions(target.Grants),
		Teams:         teams,
		IsEdit:        true,
		IsSelf:        actor.ID == target.ID,
		PasswordRules: authutil.PasswordRules(),
	}
	formutil.SetBase(&data.Base, r, h.DB, "Edit User", "/users/"+target.ID.Hex())

	templates.Render(w, r, "users_edit", data)
}

// HandleUpdate processes the Edit User form submission. An admin
// editing their own account cannot drop the admin role or suspend
// themself; another admin has to do that.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxUserFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/users")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.targetFromPath(ctx, w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/users")
		return
	}
	allowed, err := userpolicy.CanEdit(ctx, h.Resolver, actor, target.ID.Hex())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve edit permission failed", err, "Unable to check permissions.", "/users")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to edit accounts.", "/users")
		return
	}

	v := readForm(r)
	isSelf := actor.ID == target.ID

	teams, err := h.teamChoices(ctx, v.Teams)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load team options failed", err, "Unable to load the form.", "/users")
		return
	}

	renderWithError := func(msg string) {
		data := formData{
			ID:            target.ID.Hex(),
			FirstName:     v.FirstName,
			LastName:      v.LastName,
			DisplayName:   v.DisplayName,
			Email:         target.Email,
			WrikeName:     v.WrikeName,
			AuthMethod:    v.AuthMethod,
			Tier:          v.Tier,
			Status:        v.Status,
			Roles:         roleOptions(v.Roles),
			Grants:        grantOptions(v.Grants),
			Teams:         teams,
			IsEdit:        true,
			IsSelf:        isSelf,
			PasswordRules: authutil.PasswordRules(),
		}
		formutil.SetBase(&data.Base, r, h.DB, "Edit User", "/users/"+target.ID.Hex())
		data.SetError(msg)
		templates.Render(w, r, "users_edit", data)
	}

	input := accountInput{
		FirstName: v.FirstName, LastName: v.LastName, DisplayName: v.DisplayName,
		Email: target.Email, WrikeName: v.WrikeName, AuthMethod: v.AuthMethod,
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
	if isSelf && (!v.Roles[models.RoleAdmin] || v.Status != models.UserActive) {
		renderWithError("You can't remove your own admin role or suspend your own account. Ask another admin to make those changes.")
		return
	}
	switchingToPassword := v.AuthMethod == models.AuthPassword && target.AuthMethod != models.AuthPassword
	if switchingToPassword && target.PasswordHash == "" && v.Password == "" {
		renderWithError("Set an initial password when switching to password sign-in.")
		return
	}

	var newHash string
	if v.Password != "" {
		if err := authutil.ValidatePassword(v.Password); err != nil {
			renderWithError(err.Error())
			return
		}
		newHash, err = authutil.HashPassword(v.Password)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "hash password failed", err, "Unable to update the account.", "/users")
			return
		}
	}

	upd := userstore.Update{
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
	if err := h.Users.UpdateUser(ctx, target.ID, upd); err != nil {
		h.Log.Error("update user failed", zap.Error(err), zap.String("user_id", target.ID.Hex()))
		renderWithError("Database error while updating the account.")
		return
	}

	if newHash != "" {
		if err := h.Users.SetPassword(ctx, target.ID, newHash); err != nil {
			h.Log.Error("set password failed", zap.Error(err), zap.String("user_id", target.ID.Hex()))
			renderWithError("The account was updated but the new password could not be saved.")
			return
		}
	}

	changed := changedFields(target, v, newHash != "")
	if changed != "" {
		h.AuditLog.UserUpdated(ctx, r, actor.ID, target.ID, changed)
	}

	http.Redirect(w, r, "/users/"+target.ID.Hex()+"?updated=1", http.StatusSeeOther)
}

// HandleDelete removes an account. Two guards protect the admin area:
// you cannot delete yourself, and the last active admin cannot be
// deleted by anyone.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.targetFromPath(ctx, w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/users")
		return
	}
	allowed, err := userpolicy.CanDelete(ctx, h.Resolver, actor, target.ID.Hex())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve delete permission failed", err, "Unable to check permissions.", "/users")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to delete accounts.", "/users")
		return
	}

	if actor.ID == target.ID {
		http.Redirect(w, r, "/users/"+target.ID.Hex()+"?problem=self", http.StatusSeeOther)
		return
	}
	if target.IsAdmin() && target.Status == models.UserActive {
		n, err := h.Users.CountActiveAdmins(ctx)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "count active admins failed", err, "Unable to delete the account.", "/users")
			return
		}
		if n <= 1 {
			http.Redirect(w, r, "/users/"+target.ID.Hex()+"?problem=last-admin", http.StatusSeeOther)
			return
		}
	}

	n, err := h.Users.Delete(ctx, target.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete user failed", err, "Unable to delete the account.", "/users")
		return
	}
	if n == 0 {
		uierrors.RenderNotFound(w, r, "User not found.", "/users")
		return
	}

	h.Log.Info("user deleted",
		zap.String("user_id", target.ID.Hex()),
		zap.String("email", target.Email),
		zap.String("actor_id", actor.ID.Hex()))

	http.Redirect(w, r, backToUsersURL(r), http.StatusSeeOther)
}

// changedFields names the account fields an update actually altered,
// comma-separated, for the audit entry.
func changedFields(old *models.User, v formValues, passwordChanged bool) string {
	var changed []string

	display := v.DisplayName
	if display == "" {
		display = v.FirstName + " " + v.LastName
	}

	if old.FirstName != v.FirstName {
		changed = append(changed, "first_name")
	}
	if old.LastName != v.LastName {
		changed = append(changed, "last_name")
	}
	if old.DisplayName != display {
		changed = append(changed, "display_name")
	}
	if old.WrikeName != v.WrikeName {
		changed = append(changed, "wrike_name")
	}
	if !flagSetEqual(old.Roles, v.Roles) {
		changed = append(changed, "roles")
	}
	if !flagSetEqual(old.Grants, v.Grants) {
		changed = append(changed, "grants")
	}
	if !sameTeams(old.Teams, v.Teams) {
		changed = append(changed, "teams")
	}
	oldTier := old.Tier
	if oldTier == "" {
		oldTier = models.TierStandard
	}
	if oldTier != v.Tier {
		changed = append(changed, "tier")
	}
	if old.Status != v.Status {
		changed = append(changed, "status")
	}
	oldAuth := old.AuthMethod
	if oldAuth == "" {
		oldAuth = models.AuthPassword
	}
	if oldAuth != v.AuthMethod {
		changed = append(changed, "auth_method")
	}
	if passwordChanged {
		changed = append(changed, "password")
	}

	return strings.Join(changed, ",")
}

// flagSetEqual compares two boolean flag maps by their true keys, so a
// stored explicit false and an absent key count as the same thing.
func flagSetEqual(a, b map[string]bool) bool {
	for k, on := range a {
		if on && !b[k] {
			return false
		}
	}
	for k, on := range b {
		if on && !a[k] {
			return false
		}
	}
	return true
}

func sameTeams(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
