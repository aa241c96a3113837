// internal/app/features/campaigns/submit.go
package campaigns

import (
	"context"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/campaignpolicy"
	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/txn"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleSubmit processes POST /campaigns/{id}/submit: validate the
// stored campaign, move it from draft to in_review with one conditional
// write, open a pending governance review, and write one awaited audit
// entry. JSON callers get {success, reviewId}; browsers land back on
// the detail page.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusBadRequest, "invalid_argument", "malformed form data")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/campaigns")
		return
	}

	reviewType := strings.TrimSpace(r.FormValue("review_type"))
	if reviewType == "" {
		reviewType = "standard"
	}
	priority := strings.TrimSpace(r.FormValue("priority"))
	if priority == "" {
		priority = "normal"
	}
	notes := strings.TrimSpace(r.FormValue("notes"))

	if !models.IsValidReviewType(reviewType) {
		h.submitInvalid(w, r, `review type must be "standard" or "expedited"`)
		return
	}
	if !models.IsValidReviewPriority(priority) {
		h.submitInvalid(w, r, `priority must be "low", "normal" or "high"`)
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
		h.ErrLog.LogServerError(w, r, "resolve submit permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusForbidden, "permission_denied", "you do not have permission to submit this campaign")
			return
		}
		uierrors.RenderForbidden(w, r, "You do not have permission to submit this campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	// Publish-rigor validation without the stored-status readiness stage;
	// the conditional write below owns the draft precondition.
	res := campaignval.Run(campaignval.TypePreview, dataFromCampaign(c), actor, c.Status, time.Now())
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
			data.SubmitErrors = res.Errors
		})
		return
	}

	var review models.GovernanceRecord
	err = txn.Run(ctx, h.DB.Client(), func(ctx context.Context) error {
		if err := h.Campaigns.TransitionStatus(ctx, c.ID, models.CampaignDraft, models.CampaignInReview); err != nil {
			return err
		}
		rec, err := h.Governance.CreateReview(ctx, c.ID, actor.ID, reviewType, priority, notes)
		if err != nil {
			return err
		}
		review = rec
		return nil
	})
	if err == campaignstore.ErrStatusConflict {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusConflict, "precondition_failed", "campaign is not in draft")
			return
		}
		h.renderViewWith(ctx, w, r, actor, c, func(data *viewData) {
			data.SubmitErrors = []string{"campaign is not in draft"}
		})
		return
	}
	if err != nil {
		h.Log.Error("submit transaction failed", zap.Error(err))
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "internal", "unable to submit the campaign")
			return
		}
		h.ErrLog.LogServerError(w, r, "submit transaction failed", err, "Unable to submit the campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	if err := h.AuditLog.CampaignSubmitted(ctx, r, actor.ID, c.ID.Hex(), review.ID.Hex()); err != nil {
		h.Log.Error("audit write for submission failed", zap.Error(err))
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "audit_write_failed", "the campaign was submitted but the action could not be audited")
			return
		}
		h.ErrLog.LogServerError(w, r, "audit write for submission failed", err,
			"The campaign was submitted, but the action could not be audited.", "/campaigns/"+c.ID.Hex())
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"reviewId": review.ID.Hex(),
		})
		return
	}
	http.Redirect(w, r, "/campaigns/"+c.ID.Hex()+"?submitted=1", http.StatusSeeOther)
}

func (h *Handler) submitInvalid(w http.ResponseWriter, r *http.Request, msg string) {
	if wantsJSON(r) {
		writeJSONError(w, http.StatusBadRequest, "invalid_argument", msg)
		return
	}
	h.ErrLog.LogBadRequest(w, r, "bad submit parameters", nil, "Invalid review options: "+msg+".", "/campaigns")
}

// renderViewWith rebuilds the detail page and lets the caller attach
// failure details before rendering.
func (h *Handler) renderViewWith(ctx context.Context, w http.ResponseWriter, r *http.Request, actor *models.User, c *models.Campaign, mutate func(*viewData)) {
	data, err := h.buildViewData(ctx, r, actor, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "build campaign view failed", err, "Unable to load the campaign.", "/campaigns")
		return
	}
	mutate(&data)
	templates.Render(w, r, "campaign_view", data)
}
