// internal/app/features/campaigns/publish.go
package campaigns

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/campaignpolicy"
	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandlePublish processes POST /campaigns/{id}/publish: run the full
// publish validation against the stored campaign, move it from approved
// to active with one conditional write, and write one awaited audit
// entry. JSON callers get {success}; browsers land back on the detail
// page.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusBadRequest, "invalid_argument", "malformed form data")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/campaigns")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	c, ok := h.campaignFromPath(ctx, w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "internal", "unable to load your account")
			return
		}
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/campaigns")
		return
	}

	allowed, err := campaignpolicy.CanEdit(ctx, h.Resolver, actor, c)
	if err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "internal", "unable to check permissions")
			return
		}
		h.ErrLog.LogServerError(w, r, "resolve publish permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusForbidden, "permission_denied", "you do not have permission to publish this campaign")
			return
		}
		uierrors.RenderForbidden(w, r, "You do not have permission to publish this campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	res := campaignval.Run(campaignval.TypePublish, dataFromCampaign(c), actor, c.Status, time.Now())
	if !res.IsValid() {
		if wantsJSON(r) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"success":  false,
				"error":    "precondition_failed",
				"errors":   orEmpty(res.Errors),
				"warnings": orEmpty(res.Warnings),
			})
			return
		}
		h.renderViewWith(ctx, w, r, actor, c, func(data *viewData) {
			data.PublishErrors = res.Errors
		})
		return
	}

	err = h.Campaigns.TransitionStatus(ctx, c.ID, models.CampaignApproved, models.CampaignActive)
	if err == campaignstore.ErrStatusConflict {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusConflict, "precondition_failed", "campaign is not approved")
			return
		}
		h.renderViewWith(ctx, w, r, actor, c, func(data *viewData) {
			data.PublishErrors = []string{"campaign is not approved"}
		})
		return
	}
	if err != nil {
		h.Log.Error("publish transition failed", zap.Error(err))
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "internal", "unable to publish the campaign")
			return
		}
		h.ErrLog.LogServerError(w, r, "publish transition failed", err, "Unable to publish the campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	if err := h.AuditLog.CampaignPublished(ctx, r, actor.ID, c.ID.Hex()); err != nil {
		h.Log.Error("audit write for publish failed", zap.Error(err))
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "audit_write_failed", "the campaign was published but the action could not be audited")
			return
		}
		h.ErrLog.LogServerError(w, r, "audit write for publish failed", err,
			"The campaign was published, but the action could not be audited.", "/campaigns/"+c.ID.Hex())
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
		})
		return
	}
	http.Redirect(w, r, "/campaigns/"+c.ID.Hex()+"?published=1", http.StatusSeeOther)
}
