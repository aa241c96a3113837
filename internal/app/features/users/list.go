// internal/app/features/users/list.go
package users

import (
	"context"
	"maps"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/userpolicy"
	"github.com/dalemusser/planhub/internal/app/system/paging"
	"github.com/dalemusser/planhub/internal/app/system/search"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func validStatus(s string) bool {
	return s == models.UserActive || s == models.UserSuspended
}

// ServeList handles GET /users with optional ?q= name or email search
// plus status, role, and tier filters. Searching by email pivots the
// sort onto the email index when the status filter keeps it selective.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	status := query.Get(r, "status")
	role := query.Get(r, "role")
	tier := query.Get(r, "tier")
	after := query.Get(r, "after")
	before := query.Get(r, "before")
	start := paging.ParseStart(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/dashboard")
		return
	}
	allowed, err := userpolicy.CanList(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve list permission failed", err, "Unable to check permissions.", "/dashboard")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to manage accounts.", "/dashboard")
		return
	}

	if !validStatus(status) {
		status = ""
	}
	if !models.ValidRole(role) {
		role = ""
	}
	if !models.ValidTier(tier) {
		tier = ""
	}

	base := bson.M{}
	if status != "" {
		base["status"] = status
	}
	if role != "" {
		base["roles."+role] = true
	}
	if tier != "" {
		base["tier"] = tier
	}

	emailPivot := search.EmailPivotNoTeamOK(q, status)

	var searchOr []bson.M
	if q != "" {
		sLower := strings.ToLower(strings.TrimSpace(q))
		hiEmail := sLower + "￿"
		if emailPivot {
			searchOr = []bson.M{
				{"email": bson.M{"$gte": sLower, "$lt": hiEmail}},
			}
		} else {
			fq := text.Fold(q)
			hiName := fq + "￿"
			searchOr = []bson.M{
				{"display_name_ci": bson.M{"$gte": fq, "$lt": hiName}},
				{"email": bson.M{"$gte": sLower, "$lt": hiEmail}},
			}
		}
		base["$or"] = searchOr
	}

	db := h.DB
	total, err := db.Collection("users").CountDocuments(ctx, base)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count users failed", err, "Unable to load accounts.", "/dashboard")
		return
	}

	f := maps.Clone(base)
	find := options.Find()
	sortField := "display_name_ci"
	if emailPivot {
		sortField = "email"
	}

	cfg := paging.ConfigureKeyset(before, after)
	cfg.ApplyToFind(find, sortField)

	if ks := cfg.KeysetWindow(sortField); ks != nil {
		if len(searchOr) > 0 {
			f["$and"] = []bson.M{{"$or": searchOr}, ks}
			delete(f, "$or")
		} else {
			maps.Copy(f, ks)
		}
	}

	type accountRow struct {
		ID            primitive.ObjectID `bson:"_id"`
		FirstName     string             `bson:"first_name"`
		LastName      string             `bson:"last_name"`
		DisplayName   string             `bson:"display_name"`
		DisplayNameCI string             `bson:"display_name_ci"`
		Email         string             `bson:"email"`
		WrikeName     string             `bson:"wrike_name"`
		Roles         map[string]bool    `bson:"roles"`
		Tier          string             `bson:"tier"`
		Status        string             `bson:"status"`
	}

	cur, err := db.Collection("users").Find(ctx, f, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find users failed", err, "Unable to load accounts.", "/dashboard")
		return
	}
	defer cur.Close(ctx)

	var raw []accountRow
	if err := cur.All(ctx, &raw); err != nil {
		h.ErrLog.LogServerError(w, r, "decode users failed", err, "Unable to load accounts.", "/dashboard")
		return
	}

	if cfg.Direction == paging.Backward {
		paging.Reverse(raw)
	}

	page := paging.TrimPage(&raw, before, after)

	shown := len(raw)
	rng := paging.ComputeRange(start, shown)

	rows := make([]userRow, 0, shown)
	for _, a := range raw {
		u := models.User{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			WrikeName: a.WrikeName,
			Roles:     a.Roles,
		}
		name := a.DisplayName
		if name == "" {
			name = u.FullName()
		}
		tierName := a.Tier
		if tierName == "" {
			tierName = models.TierStandard
		}
		rows = append(rows, userRow{
			ID:       a.ID,
			Name:     name,
			Email:    strings.ToLower(a.Email),
			Role:     u.PrimaryRole(),
			Tier:     tierName,
			Status:   a.Status,
			HasWrike: a.WrikeName != "",
			WrikeOK:  u.WrikeNameValid(),
		})
	}

	prevCur, nextCur := paging.BuildCursors(raw,
		func(a accountRow) string {
			if emailPivot {
				return strings.ToLower(a.Email)
			}
			return a.DisplayNameCI
		},
		func(a accountRow) primitive.ObjectID { return a.ID })

	data := listData{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Users", "/dashboard"),
		Q:      q,
		Status: status,
		Role:   role,
		Tier:   tier,
		Rows:   rows,
		Roles:  roleChoices,
		Tiers:  tierChoices,

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

	templates.Render(w, r, "users_list", data)
}
