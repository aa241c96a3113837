// internal/app/features/governance/decide.go
package governance

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/governancepolicy"
	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/txn"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleDecide processes POST /governance/{id}/decide: record the
// reviewer's verdict with one conditional write, move the campaign out
// of in_review (approve advances it, reject returns it to draft), and
// write one awaited audit entry. Two reviewers racing on the same item
// get exactly one success; the loser is sent back with a conflict note.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/governance")
		return
	}

	decision := strings.TrimSpace(r.FormValue("decision"))
	notes := strings.TrimSpace(r.FormValue("notes"))
	if decision != models.ReviewApproved && decision != models.ReviewRejected {
		h.ErrLog.LogBadRequest(w, r, "bad decision", nil, `Decision must be "approved" or "rejected".`, "/governance")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "bad review id", err, "Invalid review ID.", "/governance")
		return
	}
	rev, err := h.Governance.GetReviewByID(ctx, id)
	if err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, r, "Review not found.", "/governance")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load review failed", err, "Unable to load the review.", "/governance")
		return
	}

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/governance")
		return
	}
	allowed, err := governancepolicy.CanDecide(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve decide permission failed", err, "Unable to check permissions.", "/governance")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to decide reviews.", "/governance")
		return
	}

	// The review update picks the single winner; only the winner touches
	// the campaign. A campaign already moved or deleted does not undo the
	// decision, the review itself is the unit being closed.
	var campaignStale bool
	err = txn.Run(ctx, h.DB.Client(), func(ctx context.Context) error {
		if err := h.Governance.DecideReview(ctx, rev.ID, actor.ID, decision, notes); err != nil {
			return err
		}
		if rev.CampaignID == nil {
			campaignStale = true
			return nil
		}
		next := models.CampaignApproved
		if decision == models.ReviewRejected {
			next = models.CampaignDraft
		}
		err := h.Campaigns.TransitionStatus(ctx, *rev.CampaignID, models.CampaignInReview, next)
		if err == campaignstore.ErrStatusConflict || err == mongo.ErrNoDocuments {
			campaignStale = true
			return nil
		}
		return err
	})
	if err == governancestore.ErrAlreadyDecided {
		http.Redirect(w, r, "/governance?already=1", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.Log.Error("decide transaction failed", zap.Error(err))
		h.ErrLog.LogServerError(w, r, "decide transaction failed", err, "Unable to record the decision.", "/governance")
		return
	}
	if campaignStale {
		h.Log.Warn("review decided but its campaign was not in review",
			zap.String("review_id", rev.ID.Hex()),
			zap.String("decision", decision))
	}

	campaignHex := ""
	if rev.CampaignID != nil {
		campaignHex = rev.CampaignID.Hex()
	}
	if err := h.AuditLog.ReviewDecided(ctx, r, actor.ID, campaignHex, rev.ID.Hex(), decision); err != nil {
		h.Log.Error("audit write for decision failed", zap.Error(err))
		h.ErrLog.LogServerError(w, r, "audit write for decision failed", err,
			"The decision was recorded, but the action could not be audited.", "/governance")
		return
	}

	http.Redirect(w, r, "/governance?decided="+decision, http.StatusSeeOther)
}
