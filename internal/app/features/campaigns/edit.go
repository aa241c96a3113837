// internal/app/features/campaigns/edit.go
package campaigns

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/campaignpolicy"
	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/formutil"
	"github.com/dalemusser/planhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/planhub/internal/app/system/inputval"
	"github.com/dalemusser/planhub/internal/app/system/limits"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// blankActivityRows is how many empty plan rows the edit form offers
// beyond the existing ones.
const blankActivityRows = 3

func validActivityStatus(s string) bool {
	switch s {
	case models.ActivityPlanned, models.ActivityApproved, models.ActivityCancelled:
		return true
	}
	return false
}

// ServeEdit renders the edit form for a campaign, including its
// per-period activity plan.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
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
	allowed, err := campaignpolicy.CanEdit(ctx, h.Resolver, actor, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve edit permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to edit this campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	assignees, teams, err := h.loadFormOptions(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load form options failed", err, "Unable to load the form.", "/campaigns")
		return
	}

	data := formData{
		ID:          c.ID.Hex(),
		Title:       c.Title,
		Description: c.Description,
		TeamID:      c.TeamID,
		Tags:        strings.Join(c.Tags, ", "),
		Channel:     c.Channel,
		Assignees:   assignees,
		Teams:       teams,
		Activities:  h.activityFormRows(ctx, c),
	}
	if c.AssignedTo != nil {
		data.AssignedTo = c.AssignedTo.Hex()
	}
	if !c.DueDate.IsZero() {
		data.DueDate = c.DueDate.Format("2006-01-02")
	}
	if c.Budget != nil {
		data.Budget = strconv.FormatFloat(*c.Budget, 'f', -1, 64)
	}
	formutil.SetBase(&data.Base, r, h.DB, "Edit Campaign", "/campaigns/"+c.ID.Hex())

	templates.Render(w, r, "campaign_edit", data)
}

// activityFormRows shapes the stored plan into editable rows, owners
// rendered as email addresses, plus a few blank rows.
func (h *Handler) activityFormRows(ctx context.Context, c *models.Campaign) []activityRow {
	ids := make([]primitive.ObjectID, 0, len(c.Activities))
	for _, a := range c.Activities {
		if !a.OwnerID.IsZero() {
			ids = append(ids, a.OwnerID)
		}
	}
	owners, err := h.Users.GetManyByID(ctx, ids)
	if err != nil {
		h.Log.Warn("load activity owners failed", zap.Error(err))
		owners = nil
	}

	rows := make([]activityRow, 0, len(c.Activities)+blankActivityRows)
	for _, a := range c.Activities {
		row := activityRow{
			Title:   a.Title,
			Status:  a.Status,
			Start:   a.Start,
			Due:     a.Due,
			Channel: a.Channel,
			Period:  a.Period,
		}
		if !a.OwnerID.IsZero() {
			if u, ok := owners[a.OwnerID.Hex()]; ok {
				row.Owner = u.Email
			}
		}
		rows = append(rows, row)
	}
	for i := 0; i < blankActivityRows; i++ {
		rows = append(rows, activityRow{Status: models.ActivityPlanned})
	}
	return rows
}

// parseActivityRows reads the indexed activity form arrays. Rows with an
// empty title are skipped; owners are resolved by email. The string
// return is a user-facing problem description, empty when the plan
// parsed cleanly.
func (h *Handler) parseActivityRows(ctx context.Context, r *http.Request) ([]models.Activity, []activityRow, string) {
	titles := r.Form["activity_title"]
	statuses := r.Form["activity_status"]
	owners := r.Form["activity_owner"]
	starts := r.Form["activity_start"]
	dues := r.Form["activity_due"]
	channels := r.Form["activity_channel"]
	periods := r.Form["activity_period"]

	at := func(vals []string, i int) string {
		if i < len(vals) {
			return strings.TrimSpace(vals[i])
		}
		return ""
	}

	var (
		activities []models.Activity
		raw        []activityRow
	)
	for i := range titles {
		row := activityRow{
			Title:   at(titles, i),
			Status:  at(statuses, i),
			Owner:   at(owners, i),
			Start:   at(starts, i),
			Due:     at(dues, i),
			Channel: at(channels, i),
			Period:  at(periods, i),
		}
		raw = append(raw, row)
		if row.Title == "" {
			continue
		}

		if row.Status == "" {
			row.Status = models.ActivityPlanned
		}
		if !validActivityStatus(row.Status) {
			return nil, raw, fmt.Sprintf("Activity %q has an invalid status.", row.Title)
		}
		if row.Period == "" {
			return nil, raw, fmt.Sprintf("Activity %q needs a period label.", row.Title)
		}
		for _, d := range []string{row.Start, row.Due} {
			if d == "" {
				continue
			}
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return nil, raw, fmt.Sprintf("Activity %q has an invalid date %q (use YYYY-MM-DD).", row.Title, d)
			}
		}

		a := models.Activity{
			Title:   row.Title,
			Status:  row.Status,
			Start:   row.Start,
			Due:     row.Due,
			Channel: row.Channel,
			Period:  row.Period,
		}
		if row.Owner != "" {
			u, err := h.Users.GetByEmail(ctx, row.Owner)
			if err == mongo.ErrNoDocuments {
				return nil, raw, fmt.Sprintf("No user with email %q for activity %q.", row.Owner, row.Title)
			}
			if err != nil {
				return nil, raw, "Database error while resolving activity owners."
			}
			a.OwnerID = u.ID
		}
		activities = append(activities, a)
	}
	return activities, raw, ""
}

// HandleEdit processes the edit form: planning fields and the activity
// plan in one submission. Status is never touched here.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxCampaignFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/campaigns")
		return
	}

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
	allowed, err := campaignpolicy.CanEdit(ctx, h.Resolver, actor, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve edit permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to edit this campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	assignedTo := strings.TrimSpace(r.FormValue("assigned_to"))
	teamID := strings.TrimSpace(r.FormValue("team_id"))
	dueDate := strings.TrimSpace(r.FormValue("due_date"))
	budget := strings.TrimSpace(r.FormValue("budget"))
	tags := strings.TrimSpace(r.FormValue("tags"))
	channel := strings.TrimSpace(r.FormValue("channel"))

	assignees, teams, err := h.loadFormOptions(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load form options failed", err, "Unable to load the form.", "/campaigns")
		return
	}

	activities, rawRows, activityProblem := h.parseActivityRows(ctx, r)

	renderWithError := func(msg string) {
		data := formData{
			ID:          c.ID.Hex(),
			Title:       title,
			Description: description,
			AssignedTo:  assignedTo,
			TeamID:      teamID,
			DueDate:     dueDate,
			Budget:      budget,
			Tags:        tags,
			Channel:     channel,
			Assignees:   assignees,
			Teams:       teams,
			Activities:  rawRows,
		}
		formutil.SetBase(&data.Base, r, h.DB, "Edit Campaign", "/campaigns/"+c.ID.Hex())
		data.SetError(msg)
		templates.Render(w, r, "campaign_edit", data)
	}

	input := campaignInput{
		Title: title, Description: description, AssignedTo: assignedTo,
		TeamID: teamID, DueDate: dueDate, Budget: budget, Tags: tags, Channel: channel,
	}
	if result := inputval.Validate(input); result.HasErrors() {
		renderWithError(result.First())
		return
	}
	if activityProblem != "" {
		renderWithError(activityProblem)
		return
	}

	upd := campaignstore.Update{
		Title:       title,
		Description: htmlsanitize.Sanitize(description),
		TeamID:      teamID,
		Channel:     channel,
		Tags:        parseTags(tags),
	}

	if budget != "" {
		b, err := strconv.ParseFloat(budget, 64)
		if err != nil {
			renderWithError("Budget must be a number.")
			return
		}
		upd.Budget = &b
	}
	if dueDate != "" {
		d, ok := campaignval.ParseDueDate(dueDate)
		if !ok {
			renderWithError("Due date must be a valid date (YYYY-MM-DD).")
			return
		}
		upd.DueDate = d
	}
	if assignedTo != "" {
		id, err := primitive.ObjectIDFromHex(assignedTo)
		if err != nil {
			renderWithError("Please select a valid assignee.")
			return
		}
		upd.AssignedTo = &id
	}

	if err := h.Campaigns.UpdateFields(ctx, c.ID, upd); err != nil {
		if err == mongo.ErrNoDocuments {
			uierrors.RenderNotFound(w, r, "Campaign not found.", "/campaigns")
			return
		}
		h.Log.Error("update campaign failed", zap.Error(err))
		renderWithError("Database error while saving the campaign.")
		return
	}
	if err := h.Campaigns.UpdateActivities(ctx, c.ID, activities); err != nil {
		h.Log.Error("update activities failed", zap.Error(err))
		renderWithError("Database error while saving the activity plan.")
		return
	}

	http.Redirect(w, r, "/campaigns/"+c.ID.Hex(), http.StatusSeeOther)
}
