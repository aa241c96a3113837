// internal/app/features/campaigns/delete.go
package campaigns

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/campaignpolicy"
	"github.com/dalemusser/planhub/internal/app/system/navigation"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// HandleDelete processes POST /campaigns/{id}/delete. Ownership rules
// apply: non-admins may only delete campaigns they own.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, ok := h.campaignFromPath(ctx, w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/campaigns")
		return
	}
	allowed, err := campaignpolicy.CanDelete(ctx, h.Resolver, actor, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve delete permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to delete this campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	n, err := h.Campaigns.Delete(ctx, c.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete campaign failed", err, "Unable to delete the campaign.", "/campaigns")
		return
	}
	if n == 0 {
		uierrors.RenderNotFound(w, r, "Campaign not found.", "/campaigns")
		return
	}

	ret := navigation.SafeBackURL(r, navigation.CampaignsBackURL)
	http.Redirect(w, r, ret, http.StatusSeeOther)
}
