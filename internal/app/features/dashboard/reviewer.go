// internal/app/features/dashboard/reviewer.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/gates"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// pendingQueueLimit caps the preview of the review queue; the full
// queue lives under /governance.
const pendingQueueLimit = 5

type reviewerData struct {
	viewdata.BaseVM

	Counts        statusSummary
	OldestPending []pendingRow
}

// pendingRow is one waiting review in the dashboard preview.
type pendingRow struct {
	ReviewID   string
	CampaignID string
	Campaign   string
	Priority   string
	ReviewType string
	Since      string
}

func (h *Handler) ServeReviewer(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireReviewer(w, r, "The reviewer dashboard is restricted to reviewers.", "/dashboard"); !res.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	data := reviewerData{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Dashboard", "/"),
	}

	counts, err := loadStatusSummary(ctx, h.DB)
	if err != nil {
		h.Log.Error("dashboard status counts failed", zap.Error(err))
	}
	data.Counts = counts

	data.OldestPending = h.loadOldestPending(ctx)

	templates.Render(w, r, "dashboard_reviewer", data)
}

// loadOldestPending returns the longest-waiting pending reviews with
// campaign titles resolved.
func (h *Handler) loadOldestPending(ctx context.Context) []pendingRow {
	filter := bson.M{"type": models.GovernanceReview, "status": models.ReviewPending}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(pendingQueueLimit)

	cur, err := h.DB.Collection("governance").Find(ctx, filter, opts)
	if err != nil {
		h.Log.Error("pending review query failed", zap.Error(err))
		return nil
	}
	var recs []models.GovernanceRecord
	if err := cur.All(ctx, &recs); err != nil {
		h.Log.Error("pending review decode failed", zap.Error(err))
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(recs))
	for _, rec := range recs {
		if rec.CampaignID != nil {
			ids = append(ids, *rec.CampaignID)
		}
	}
	titles := h.campaignTitles(ctx, ids)

	rows := make([]pendingRow, 0, len(recs))
	for _, rec := range recs {
		row := pendingRow{
			ReviewID:   rec.ID.Hex(),
			Priority:   rec.Priority,
			ReviewType: rec.ReviewType,
			Since:      rec.CreatedAt.Format("Jan 2 15:04"),
		}
		if rec.CampaignID != nil {
			row.CampaignID = rec.CampaignID.Hex()
			row.Campaign = titles[rec.CampaignID.Hex()]
		}
		if row.Campaign == "" {
			row.Campaign = "(campaign removed)"
		}
		rows = append(rows, row)
	}
	return rows
}

func (h *Handler) campaignTitles(ctx context.Context, ids []primitive.ObjectID) map[string]string {
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles
	}

	opts := options.Find().SetProjection(bson.M{"title": 1})
	cur, err := h.DB.Collection("campaigns").Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		h.Log.Error("campaign title lookup failed", zap.Error(err))
		return titles
	}
	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Title string             `bson:"title"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		h.Log.Error("campaign title decode failed", zap.Error(err))
		return titles
	}
	for _, d := range docs {
		titles[d.ID.Hex()] = d.Title
	}
	return titles
}
