// internal/app/features/campaigns/export.go
package campaigns

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	"github.com/dalemusser/planhub/internal/app/policy/campaignpolicy"
	"github.com/dalemusser/planhub/internal/app/system/csvutil"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/app/system/wrike"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var exportHeader = []string{"Task Title", "Assignee", "Start", "Due", "Channel"}

// HandleExport processes POST /campaigns/{id}/export. The preflight
// gate decides all-or-nothing; only a fully valid plan (or period, when
// ?period= narrows the export) leaves the system. JSON callers get the
// export envelope (success, externalId, externalUrl); the browser flow
// streams the CSV artifact with the export ID in the X-Export-ID
// header. Both outcomes write one awaited audit entry.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusBadRequest, "invalid_argument", "malformed form data")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", "/campaigns")
		return
	}

	exportType := strings.TrimSpace(r.FormValue("type"))
	if exportType == "" {
		exportType = "wrike"
	}
	if exportType != "wrike" {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusBadRequest, "invalid_argument", `export type must be "wrike"`)
			return
		}
		h.ErrLog.LogBadRequest(w, r, "bad export type", nil, "Unsupported export type.", "/campaigns")
		return
	}
	period := strings.TrimSpace(r.FormValue("period"))

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

	allowed, err := campaignpolicy.CanExport(ctx, h.Resolver, actor, c)
	if err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "internal", "unable to check permissions")
			return
		}
		h.ErrLog.LogServerError(w, r, "resolve export permission failed", err, "Unable to check permissions.", "/campaigns")
		return
	}
	if !allowed {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusForbidden, "permission_denied", "you do not have permission to export this campaign")
			return
		}
		uierrors.RenderForbidden(w, r, "You do not have permission to export this campaign.", "/campaigns/"+c.ID.Hex())
		return
	}

	if !c.Exportable() {
		h.exportPrecondition(ctx, w, r, actor, c, "campaign must be approved or active to export")
		return
	}
	for _, blocked := range h.ExportDenylist {
		if strings.EqualFold(strings.TrimSpace(blocked), c.Channel) && c.Channel != "" {
			h.exportPrecondition(ctx, w, r, actor, c, "channel "+c.Channel+" is blocked from export")
			return
		}
	}

	order, byPeriod := c.ActivitiesByPeriod()
	if period != "" {
		if _, known := byPeriod[period]; !known {
			if wantsJSON(r) {
				writeJSONError(w, http.StatusBadRequest, "invalid_argument", "unknown period "+period)
				return
			}
			h.ErrLog.LogBadRequest(w, r, "unknown export period", nil, "Unknown period.", "/campaigns/"+c.ID.Hex())
			return
		}
		order = []string{period}
	}

	ownerIDs := make([]primitive.ObjectID, 0, len(c.Activities))
	for _, a := range c.Activities {
		if !a.OwnerID.IsZero() {
			ownerIDs = append(ownerIDs, a.OwnerID)
		}
	}
	usersByID, err := h.Users.GetManyByID(ctx, ownerIDs)
	if err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "internal", "unable to load activity owners")
			return
		}
		h.ErrLog.LogServerError(w, r, "load activity owners failed", err, "Unable to load activity owners.", "/campaigns/"+c.ID.Hex())
		return
	}

	auditPeriod := period
	if auditPeriod == "" {
		auditPeriod = "all"
	}

	var verdict wrike.PlanResult
	if period != "" {
		res := wrike.Period(period, byPeriod[period], usersByID)
		verdict = wrike.PlanResult{
			Success:      res.Success,
			Errors:       res.Errors,
			InvalidUsers: res.InvalidUsers,
		}
		if res.Success {
			verdict.Periods = []wrike.PeriodRows{{Label: period, Rows: res.Rows}}
		}
	} else {
		verdict = wrike.Plan(order, byPeriod, usersByID)
	}

	totalRows := 0
	for _, p := range verdict.Periods {
		totalRows += len(p.Rows)
	}
	if verdict.Success && totalRows > csvutil.MaxExportRows {
		verdict = wrike.PlanResult{
			Errors: []string{"export exceeds the row limit"},
		}
	}

	if !verdict.Success {
		reason := "export blocked"
		if len(verdict.Errors) > 0 {
			reason = verdict.Errors[0]
		}
		if err := h.AuditLog.ExportBlocked(ctx, r, actor.ID, c.ID.Hex(), auditPeriod, reason); err != nil {
			h.Log.Error("audit write for blocked export failed", zap.Error(err))
			if wantsJSON(r) {
				writeJSONError(w, http.StatusInternalServerError, "audit_write_failed", "the export was blocked but the action could not be audited")
				return
			}
			h.ErrLog.LogServerError(w, r, "audit write for blocked export failed", err,
				"The export was blocked, but the action could not be audited.", "/campaigns/"+c.ID.Hex())
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"success":      false,
				"error":        "precondition_failed",
				"errors":       orEmpty(verdict.Errors),
				"invalidUsers": orEmpty(verdict.InvalidUsers),
			})
			return
		}
		h.renderViewWith(ctx, w, r, actor, c, func(data *viewData) {
			data.ExportErrors = verdict.Errors
			data.InvalidUsers = verdict.InvalidUsers
		})
		return
	}

	// Audit before streaming; once the body starts there is no way to
	// report a failure to the caller.
	if err := h.AuditLog.ExportSucceeded(ctx, r, actor.ID, c.ID.Hex(), auditPeriod, totalRows); err != nil {
		h.Log.Error("audit write for export failed", zap.Error(err))
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "audit_write_failed", "the export could not be audited and was not produced")
			return
		}
		h.ErrLog.LogServerError(w, r, "audit write for export failed", err,
			"The export could not be audited and was not produced.", "/campaigns/"+c.ID.Hex())
		return
	}

	externalID := uuid.NewString()

	// API callers get the export envelope; the browser flow streams the
	// CSV artifact directly.
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"externalId":  externalID,
			"externalUrl": externalURL(externalID),
			"rows":        totalRows,
		})
		return
	}

	w.Header().Set("X-Export-ID", externalID)

	cw := csvutil.BeginDownload(w, csvutil.Filename("campaign_"+c.TitleCI))
	for _, p := range verdict.Periods {
		rows := make([][]string, 0, len(p.Rows))
		for _, row := range p.Rows {
			rows = append(rows, []string{row.Title, row.AssigneeIdentity, row.Start, row.Due, row.Channel})
		}
		if err := csvutil.WriteSection(cw, p.Label, exportHeader, rows); err != nil {
			h.Log.Error("write export section failed", zap.Error(err), zap.String("period", p.Label))
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Log.Error("flush export failed", zap.Error(err))
	}
}

// externalURL is the deep link into the receiving system for a
// completed export.
func externalURL(externalID string) string {
	return "https://www.wrike.com/open.htm?id=" + externalID
}

// exportPrecondition reports a status or channel gate failure and
// audits the blocked attempt.
func (h *Handler) exportPrecondition(ctx context.Context, w http.ResponseWriter, r *http.Request, actor *models.User, c *models.Campaign, msg string) {
	if err := h.AuditLog.ExportBlocked(ctx, r, actor.ID, c.ID.Hex(), "all", msg); err != nil {
		h.Log.Error("audit write for blocked export failed", zap.Error(err))
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "audit_write_failed", "the export was blocked but the action could not be audited")
			return
		}
		h.ErrLog.LogServerError(w, r, "audit write for blocked export failed", err,
			"The export was blocked, but the action could not be audited.", "/campaigns/"+c.ID.Hex())
		return
	}
	if wantsJSON(r) {
		writeJSONError(w, http.StatusConflict, "precondition_failed", msg)
		return
	}
	h.renderViewWith(ctx, w, r, actor, c, func(data *viewData) {
		data.ExportErrors = []string{msg}
	})
}
