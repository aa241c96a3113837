// internal/app/features/campaigns/view.go
package campaigns

import (
	"context"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/campaignpolicy"
	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServeView handles GET /campaigns/{id}: the campaign detail page with
// the validation panel, the advisory compliance report, and the
// per-period activity plan.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
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

	allowed, err := campaignpolicy.CanView(ctx, h.Resolver, actor, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve view permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to view this campaign.", "/campaigns")
		return
	}

	data, err := h.buildViewData(ctx, r, actor, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "build campaign view failed", err, "Unable to load the campaign.", "/campaigns")
		return
	}
	if r.URL.Query().Get("submitted") == "1" {
		data.Notice = "Campaign submitted for review."
	}
	if r.URL.Query().Get("published") == "1" {
		data.Notice = "Campaign published."
	}

	templates.Render(w, r, "campaign_view", data)
}

// buildViewData assembles the detail page model. Submit and export
// failures re-render the same page, so everything the template needs is
// produced here.
func (h *Handler) buildViewData(ctx context.Context, r *http.Request, actor *models.User, c *models.Campaign) (viewData, error) {
	ids := make([]primitive.ObjectID, 0, len(c.Activities)+2)
	if c.AssignedTo != nil {
		ids = append(ids, *c.AssignedTo)
	}
	if !c.CreatedBy.IsZero() {
		ids = append(ids, c.CreatedBy)
	}
	for _, a := range c.Activities {
		if !a.OwnerID.IsZero() {
			ids = append(ids, a.OwnerID)
		}
	}
	users, err := h.Users.GetManyByID(ctx, ids)
	if err != nil {
		return viewData{}, fmt.Errorf("load related users: %w", err)
	}
	nameOf := func(id primitive.ObjectID) string {
		if u, ok := users[id.Hex()]; ok {
			return u.FullName()
		}
		return id.Hex()
	}

	canEdit, err := campaignpolicy.CanEdit(ctx, h.Resolver, actor, c)
	if err != nil {
		return viewData{}, err
	}
	canDelete, err := campaignpolicy.CanDelete(ctx, h.Resolver, actor, c)
	if err != nil {
		return viewData{}, err
	}
	canExport, err := campaignpolicy.CanExport(ctx, h.Resolver, actor, c)
	if err != nil {
		return viewData{}, err
	}

	now := time.Now()
	d := dataFromCampaign(c)
	validation := campaignval.Run(campaignval.TypePreview, d, actor, c.Status, now)
	report := campaignval.BuildReport(d, actor, now)

	data := viewData{
		BaseVM:      viewdata.NewBaseVM(r, h.DB, c.Title, "/campaigns"),
		ID:          c.ID.Hex(),
		CTitle:      c.Title,
		Description: htmlsanitize.PrepareForDisplay(c.Description),
		Status:      c.Status,
		Team:        c.TeamID,
		Tags:        c.Tags,
		Channel:     c.Channel,
		CreatedAt:   c.CreatedAt.Format("Jan 2, 2006"),
		UpdatedAt:   c.UpdatedAt.Format("Jan 2, 2006 15:04"),

		CanEdit:    canEdit,
		CanDelete:  canDelete,
		CanExport:  canExport,
		CanSubmit:  canEdit && c.Status == models.CampaignDraft,
		CanPublish: canEdit && c.Status == models.CampaignApproved,
		Exportable: c.Exportable(),

		Validation: validation,
		Report:     report,
	}
	if c.AssignedTo != nil {
		data.Assignee = nameOf(*c.AssignedTo)
	}
	if !c.CreatedBy.IsZero() {
		data.CreatedBy = nameOf(c.CreatedBy)
	}
	if !c.DueDate.IsZero() {
		data.DueDate = c.DueDate.Format("Jan 2, 2006")
	}
	if c.Budget != nil {
		data.Budget = fmt.Sprintf("$%.2f", *c.Budget)
	}

	order, byPeriod := c.ActivitiesByPeriod()
	data.PeriodOrder = order
	data.Periods = make(map[string][]activityRow, len(byPeriod))
	for _, period := range order {
		rows := make([]activityRow, 0, len(byPeriod[period]))
		for _, a := range byPeriod[period] {
			row := activityRow{
				Title:   a.Title,
				Status:  a.Status,
				Start:   a.Start,
				Due:     a.Due,
				Channel: a.Channel,
				Period:  a.Period,
			}
			if !a.OwnerID.IsZero() {
				row.Owner = nameOf(a.OwnerID)
			}
			rows = append(rows, row)
		}
		data.Periods[period] = rows
	}

	if c.Status == models.CampaignInReview {
		rev, err := h.Governance.PendingReviewForCampaign(ctx, c.ID)
		switch {
		case err == mongo.ErrNoDocuments:
			// In review with no pending record: decided elsewhere, nothing to show.
		case err != nil:
			return viewData{}, fmt.Errorf("load pending review: %w", err)
		default:
			data.PendingReview = &reviewInfo{
				ID:         rev.ID.Hex(),
				Priority:   rev.Priority,
				ReviewType: rev.ReviewType,
				Since:      rev.CreatedAt.Format("Jan 2, 2006"),
			}
		}
	}

	return data, nil
}
