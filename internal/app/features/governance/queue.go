// internal/app/features/governance/queue.go
package governance

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/governancepolicy"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// queueLimit caps one page of the review queue. A backlog this deep
// means reviewing has stalled; the oldest items still surface first.
const queueLimit = 50

// queueRow is one waiting review with its references resolved.
type queueRow struct {
	ReviewID   string
	CampaignID string
	Campaign   string
	Submitter  string
	ReviewType string
	Priority   string
	Notes      string
	Since      string
}

type queueData struct {
	viewdata.BaseVM

	Rows      []queueRow
	CanDecide bool

	Notice  string
	Problem string
}

// ServeQueue handles GET /governance: pending reviews oldest first with
// approve/reject controls for actors who may decide.
func (h *Handler) ServeQueue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/")
		return
	}

	allowed, err := governancepolicy.CanView(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve queue permission failed", err, "Unable to check permissions.", "/")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to view the review queue.", "/")
		return
	}
	canDecide, err := governancepolicy.CanDecide(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve decide permission failed", err, "Unable to check permissions.", "/")
		return
	}

	recs, err := h.Governance.ListPendingReviews(ctx, queueLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "pending review query failed", err, "Unable to load the review queue.", "/")
		return
	}

	campaignIDs := make([]primitive.ObjectID, 0, len(recs))
	submitterIDs := make([]primitive.ObjectID, 0, len(recs))
	for _, rec := range recs {
		if rec.CampaignID != nil {
			campaignIDs = append(campaignIDs, *rec.CampaignID)
		}
		if rec.SubmittedBy != nil {
			submitterIDs = append(submitterIDs, *rec.SubmittedBy)
		}
	}
	titles := h.campaignTitles(ctx, campaignIDs)
	submitters, err := h.Users.GetManyByID(ctx, submitterIDs)
	if err != nil {
		h.Log.Error("queue submitter lookup failed", zap.Error(err))
	}

	rows := make([]queueRow, 0, len(recs))
	for _, rec := range recs {
		row := queueRow{
			ReviewID:   rec.ID.Hex(),
			ReviewType: rec.ReviewType,
			Priority:   rec.Priority,
			Notes:      rec.Notes,
			Since:      rec.CreatedAt.Format("Jan 2, 2006 15:04"),
		}
		if rec.CampaignID != nil {
			row.CampaignID = rec.CampaignID.Hex()
			row.Campaign = titles[rec.CampaignID.Hex()]
		}
		if row.Campaign == "" {
			row.Campaign = "(campaign removed)"
		}
		if rec.SubmittedBy != nil {
			if u, ok := submitters[rec.SubmittedBy.Hex()]; ok {
				row.Submitter = u.FullName()
			} else {
				row.Submitter = rec.SubmittedBy.Hex()
			}
		}
		rows = append(rows, row)
	}

	data := queueData{
		BaseVM:    viewdata.NewBaseVM(r, h.DB, "Review queue", "/dashboard"),
		Rows:      rows,
		CanDecide: canDecide,
	}
	switch {
	case r.URL.Query().Get("decided") == models.ReviewApproved:
		data.Notice = "Review approved."
	case r.URL.Query().Get("decided") == models.ReviewRejected:
		data.Notice = "Review rejected. The campaign is back in draft."
	case r.URL.Query().Get("already") == "1":
		data.Problem = "That review was already decided."
	}

	templates.Render(w, r, "governance_queue", data)
}
