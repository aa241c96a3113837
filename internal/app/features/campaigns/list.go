// internal/app/features/campaigns/list.go
package campaigns

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/paging"
	"github.com/dalemusser/planhub/internal/app/system/teamutil"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var statusOptions = []string{
	models.CampaignDraft,
	models.CampaignInReview,
	models.CampaignApproved,
	models.CampaignActive,
	models.CampaignCompleted,
	models.CampaignArchived,
}

func validStatusFilter(s string) bool {
	for _, v := range statusOptions {
		if v == s {
			return true
		}
	}
	return false
}

// ServeList handles GET /campaigns with optional ?q= title search plus
// status and team filters. Supports HTMX partial refresh of the table
// when HX-Target="campaigns-table-wrap".
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	status := query.Get(r, "status")
	team := query.Get(r, "team")
	after := query.Get(r, "after")
	before := query.Get(r, "before")
	start := paging.ParseStart(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	db := h.DB

	base := bson.M{}
	var searchOr []bson.M
	if q != "" {
		fq := text.Fold(q)
		if fq != "" {
			hi := fq + "￿"
			searchOr = []bson.M{
				{"title_ci": bson.M{"$gte": fq, "$lt": hi}},
			}
			base["$or"] = searchOr
		}
	}
	if !validStatusFilter(status) {
		status = ""
	}
	if status != "" {
		base["status"] = status
	}
	if team != "" {
		base["team_id"] = team
	}

	total, err := db.Collection("campaigns").CountDocuments(ctx, base)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count campaigns failed", err, "Unable to load campaigns.", "")
		return
	}

	f := maps.Clone(base)
	find := options.Find()
	sortField := "title_ci"

	cfg := paging.ConfigureKeyset(before, after)
	cfg.ApplyToFind(find, sortField)

	if ks := cfg.KeysetWindow(sortField); ks != nil {
		if q != "" && len(searchOr) > 0 {
			f["$and"] = []bson.M{{"$or": searchOr}, ks}
			delete(f, "$or")
		} else {
			maps.Copy(f, ks)
		}
	}

	type campaignRow struct {
		ID         primitive.ObjectID  `bson:"_id"`
		Title      string              `bson:"title"`
		TitleCI    string              `bson:"title_ci"`
		Status     string              `bson:"status"`
		AssignedTo *primitive.ObjectID `bson:"assigned_to"`
		TeamID     string              `bson:"team_id"`
		DueDate    time.Time           `bson:"due_date"`
		Budget     *float64            `bson:"budget"`
	}

	cur, err := db.Collection("campaigns").Find(ctx, f, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find campaigns failed", err, "Unable to load campaigns.", "")
		return
	}
	defer cur.Close(ctx)

	var rows []campaignRow
	if err := cur.All(ctx, &rows); err != nil {
		h.ErrLog.LogServerError(w, r, "decode campaigns failed", err, "Unable to load campaigns.", "")
		return
	}

	if cfg.Direction == paging.Backward {
		paging.Reverse(rows)
	}

	page := paging.TrimPage(&rows, before, after)

	shown := len(rows)
	rng := paging.ComputeRange(start, shown)

	// Batch-resolve assignee names.
	assigneeIDs := make([]primitive.ObjectID, 0, len(rows))
	for _, c := range rows {
		if c.AssignedTo != nil {
			assigneeIDs = append(assigneeIDs, *c.AssignedTo)
		}
	}
	assignees, err := h.Users.GetManyByID(ctx, assigneeIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load assignees failed", err, "Unable to load campaign data.", "")
		return
	}

	items := make([]listItem, 0, len(rows))
	for _, c := range rows {
		it := listItem{
			ID:     c.ID,
			Title:  c.Title,
			Status: c.Status,
			Team:   c.TeamID,
		}
		if c.AssignedTo != nil {
			if u, ok := assignees[c.AssignedTo.Hex()]; ok {
				it.Assignee = u.FullName()
			}
		}
		if !c.DueDate.IsZero() {
			it.DueDate = c.DueDate.Format("Jan 2, 2006")
		}
		if c.Budget != nil {
			it.Budget = fmt.Sprintf("$%.2f", *c.Budget)
		}
		items = append(items, it)
	}

	prevCur, nextCur := "", ""
	if len(rows) > 0 {
		prevCur = wafflemongo.EncodeCursor(rows[0].TitleCI, rows[0].ID)
		nextCur = wafflemongo.EncodeCursor(rows[len(rows)-1].TitleCI, rows[len(rows)-1].ID)
	}

	teamOpts, err := teamutil.Options(ctx, db, h.Log)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load team options failed", err, "Unable to load campaigns.", "")
		return
	}

	data := listData{
		BaseVM:   viewdata.NewBaseVM(r, h.DB, "Campaigns", "/"),
		Q:        q,
		Status:   status,
		Team:     team,
		Items:    items,
		Teams:    teamOpts,
		Statuses: statusOptions,

		Shown:      shown,
		Total:      total,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
		PrevCursor: prevCur,
		NextCursor: nextCur,
		RangeStart: rng.Start,
		RangeEnd:   rng.End,
		PrevStart:  rng.PrevStart,
		NextStart:  rng.NextStart,
	}

	// HTMX partial: just the table
	if r.Header.Get("HX-Request") != "" && r.Header.Get("HX-Target") == "campaigns-table-wrap" {
		templates.RenderSnippet(w, "campaigns_table", data)
		return
	}

	templates.Render(w, r, "campaigns_list", data)
}
