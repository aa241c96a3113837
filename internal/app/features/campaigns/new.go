// internal/app/features/campaigns/new.go
package campaigns

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/campaignpolicy"
	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/formutil"
	"github.com/dalemusser/planhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/planhub/internal/app/system/inputval"
	"github.com/dalemusser/planhub/internal/app/system/limits"
	"github.com/dalemusser/planhub/internal/app/system/teamutil"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// loadFormOptions fetches the assignee and team choices for the
// campaign forms. Assignees are active users; suspended accounts stay
// out of the dropdown.
func (h *Handler) loadFormOptions(ctx context.Context) ([]assigneeOption, []teamutil.TeamOption, error) {
	find := options.Find().
		SetSort(bson.D{{Key: "display_name_ci", Value: 1}}).
		SetLimit(200).
		SetProjection(bson.M{"first_name": 1, "last_name": 1, "display_name": 1, "email": 1})

	cur, err := h.DB.Collection("users").Find(ctx, bson.M{"status": models.UserActive}, find)
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close(ctx)

	type userRow struct {
		ID          primitive.ObjectID `bson:"_id"`
		FirstName   string             `bson:"first_name"`
		LastName    string             `bson:"last_name"`
		DisplayName string             `bson:"display_name"`
		Email       string             `bson:"email"`
	}
	var rows []userRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, nil, err
	}

	assignees := make([]assigneeOption, 0, len(rows))
	for _, u := range rows {
		name := u.DisplayName
		if name == "" {
			name = strings.TrimSpace(u.FirstName + " " + u.LastName)
		}
		if name == "" {
			name = u.Email
		}
		assignees = append(assignees, assigneeOption{ID: u.ID.Hex(), Name: name})
	}

	teams, err := teamutil.Options(ctx, h.DB, h.Log)
	if err != nil {
		return nil, nil, err
	}
	return assignees, teams, nil
}

// parseTags splits a comma-separated tag string, trimming whitespace
// and dropping empties.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// ServeNew renders the "New Campaign" form.
// Authorization: RequireRole("admin", "editor") middleware in routes.go;
// the permission resolver still gets the final say (explicit denies).
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/campaigns")
		return
	}
	allowed, err := campaignpolicy.CanCreate(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve create permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to create campaigns.", "/campaigns")
		return
	}

	assignees, teams, err := h.loadFormOptions(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load form options failed", err, "Unable to load the form.", "/campaigns")
		return
	}

	data := formData{Assignees: assignees, Teams: teams}
	formutil.SetBase(&data.Base, r, h.DB, "New Campaign", "/campaigns")

	templates.Render(w, r, "campaign_new", data)
}

// HandleCreate processes the New Campaign form submission. New
// campaigns always start as drafts; the governance engine judges
// completeness later, so only structural checks block the save.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxCampaignFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/campaigns")
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/campaigns")
		return
	}

	assignees, teams, err := h.loadFormOptions(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load form options failed", err, "Unable to load the form.", "/campaigns")
		return
	}

	renderWithError := func(msg string) {
		data := formData{
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
		}
		formutil.SetBase(&data.Base, r, h.DB, "New Campaign", "/campaigns")
		data.SetError(msg)
		templates.Render(w, r, "campaign_new", data)
	}

	input := campaignInput{
		Title: title, Description: description, AssignedTo: assignedTo,
		TeamID: teamID, DueDate: dueDate, Budget: budget, Tags: tags, Channel: channel,
	}
	if result := inputval.Validate(input); result.HasErrors() {
		renderWithError(result.First())
		return
	}

	var budgetVal *float64
	if budget != "" {
		b, err := strconv.ParseFloat(budget, 64)
		if err != nil {
			renderWithError("Budget must be a number.")
			return
		}
		budgetVal = &b
	}

	var due time.Time
	if dueDate != "" {
		d, ok := campaignval.ParseDueDate(dueDate)
		if !ok {
			renderWithError("Due date must be a valid date (YYYY-MM-DD).")
			return
		}
		due = d
	}

	var assigneeID *primitive.ObjectID
	if assignedTo != "" {
		id, err := primitive.ObjectIDFromHex(assignedTo)
		if err != nil {
			renderWithError("Please select a valid assignee.")
			return
		}
		assigneeID = &id
	}

	allowed, err := campaignpolicy.CanCreate(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve create permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to create campaigns.", "/campaigns")
		return
	}

	c := models.Campaign{
		Title:       title,
		Description: htmlsanitize.Sanitize(description),
		Status:      models.CampaignDraft,
		AssignedTo:  assigneeID,
		TeamID:      teamID,
		Budget:      budgetVal,
		DueDate:     due,
		Tags:        parseTags(tags),
		Channel:     channel,
		CreatedBy:   actor.ID,
	}

	created, err := h.Campaigns.Create(ctx, c)
	if err != nil {
		h.Log.Error("create campaign failed", zap.Error(err))
		renderWithError("Database error while creating campaign.")
		return
	}

	http.Redirect(w, r, "/campaigns/"+created.ID.Hex(), http.StatusSeeOther)
}
