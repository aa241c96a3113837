// internal/app/features/users/view.go
package users

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/userpolicy"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
)

// ServeView renders a read-only account detail page: identity, role
// flags, tier, explicit grants, teams, and the export identity with
// its validity badge.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
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
	allowed, err := userpolicy.CanList(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve view permission failed", err, "Unable to check permissions.", "/users")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to view accounts.", "/users")
		return
	}

	name := target.DisplayName
	if name == "" {
		name = target.FullName()
	}
	tier := target.Tier
	if tier == "" {
		tier = models.TierStandard
	}
	authMethod := target.AuthMethod
	if authMethod == "" {
		authMethod = models.AuthPassword
	}

	data := viewData{
		BaseVM:      viewdata.NewBaseVM(r, h.DB, name, "/users"),
		ID:          target.ID.Hex(),
		Name:        name,
		Email:       target.Email,
		AuthMethod:  authMethod,
		WrikeName:   target.WrikeName,
		WrikeOK:     target.WrikeNameValid(),
		PrimaryRole: target.PrimaryRole(),
		Tier:        tier,
		Status:      target.Status,
		RoleFlags:   selectedRoleNames(target.Roles),
		Grants:      selectedGrantKeys(target.Grants),
		Teams:       target.Teams,
		CreatedAt:   target.CreatedAt.Format("Jan 2, 2006 15:04"),
		UpdatedAt:   target.UpdatedAt.Format("Jan 2, 2006 15:04"),
		IsSelf:      actor.ID == target.ID,
	}

	switch {
	case query.Get(r, "updated") == "1":
		data.Notice = "Account updated."
	case query.Get(r, "problem") == "self":
		data.Problem = "You can't delete your own account. Ask another admin to remove it."
	case query.Get(r, "problem") == "last-admin":
		data.Problem = "There must be at least one active administrator. Promote someone else first."
	}

	templates.Render(w, r, "users_view", data)
}
