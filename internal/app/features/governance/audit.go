// internal/app/features/governance/audit.go
package governance

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/governancepolicy"
	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// auditPageLimit caps one page of the audit browser.
const auditPageLimit = 25

// auditRow is one rendered audit entry. Verified reflects recomputing
// the stored hash against the entry's content.
type auditRow struct {
	ID       string
	Action   string
	Resource string
	Actor    string
	When     string
	IP       string
	Verified bool
}

type auditData struct {
	viewdata.BaseVM

	Action   string
	User     string
	Resource string

	Rows    []auditRow
	Actions []string

	HasMore    bool
	NextBefore string
}

func validActionFilter(a string) bool {
	for _, v := range models.AuditActions {
		if v == a {
			return true
		}
	}
	return false
}

// ServeAudit handles GET /governance/audit: the audit log newest first
// with action, user and resource filters. Entries are keyed by insertion
// order, so paging walks backwards from a "before" entry ID.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	action := query.Get(r, "action")
	userHex := query.Get(r, "user")
	resource := query.Get(r, "resource")
	beforeHex := query.Get(r, "before")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, err := h.actorFromSession(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actor failed", err, "Unable to load your account.", "/")
		return
	}
	allowed, err := governancepolicy.CanView(ctx, h.Resolver, actor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve audit permission failed", err, "Unable to check permissions.", "/")
		return
	}
	if !allowed {
		uierrors.RenderForbidden(w, r, "You do not have permission to view the audit log.", "/")
		return
	}

	if !validActionFilter(action) {
		action = ""
	}
	f := governancestore.AuditFilter{Action: action, ResourceID: resource}
	if userHex != "" {
		if uid, err := primitive.ObjectIDFromHex(userHex); err == nil {
			f.UserID = &uid
		}
	}
	var before primitive.ObjectID
	if beforeHex != "" {
		if b, err := primitive.ObjectIDFromHex(beforeHex); err == nil {
			before = b
		}
	}

	recs, err := h.Governance.ListAudit(ctx, f, before, auditPageLimit+1)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit query failed", err, "Unable to load the audit log.", "/governance")
		return
	}
	hasMore := len(recs) > auditPageLimit
	if hasMore {
		recs = recs[:auditPageLimit]
	}

	ids := make([]primitive.ObjectID, 0, len(recs))
	for _, rec := range recs {
		if rec.UserID != nil {
			ids = append(ids, *rec.UserID)
		}
	}
	actors, err := h.Users.GetManyByID(ctx, ids)
	if err != nil {
		h.Log.Error("audit actor lookup failed", zap.Error(err))
	}

	rows := make([]auditRow, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		name := "system"
		if rec.UserID != nil {
			if u, ok := actors[rec.UserID.Hex()]; ok {
				name = u.FullName()
			} else {
				name = rec.UserID.Hex()
			}
		}
		rows = append(rows, auditRow{
			ID:       rec.ID.Hex(),
			Action:   rec.Action,
			Resource: rec.ResourceID,
			Actor:    name,
			When:     rec.Timestamp.Format("Jan 2, 2006 15:04:05"),
			IP:       rec.Metadata["ip"],
			Verified: governancestore.VerifyAudit(rec),
		})
	}

	data := auditData{
		BaseVM:   viewdata.NewBaseVM(r, h.DB, "Audit log", "/governance"),
		Action:   action,
		User:     userHex,
		Resource: resource,
		Rows:     rows,
		Actions:  models.AuditActions,
		HasMore:  hasMore,
	}
	if hasMore && len(rows) > 0 {
		data.NextBefore = rows[len(rows)-1].ID
	}

	templates.Render(w, r, "governance_audit", data)
}
