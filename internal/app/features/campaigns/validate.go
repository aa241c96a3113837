// internal/app/features/campaigns/validate.go
package campaigns

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleValidate runs the governance validation engine over submitted
// form data and answers in JSON: POST /campaigns/{id}/validate.
//
// Malformed input is rejected with invalid_argument before the engine
// runs; engine findings travel in the response body, not the status
// code. Every run writes one awaited audit entry.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	su, okUser := auth.CurrentUser(r)
	if !okUser {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "sign in to validate campaigns")
		return
	}
	userID, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "session user is invalid")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_argument", "malformed form data")
		return
	}

	campaignID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_argument", "invalid campaign ID")
		return
	}

	vt := campaignval.Type(strings.TrimSpace(r.FormValue("type")))
	if vt == "" {
		vt = campaignval.TypeDraft
	}
	switch vt {
	case campaignval.TypeDraft, campaignval.TypePreview, campaignval.TypePublish:
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid_argument", `type must be "draft", "preview" or "publish"`)
		return
	}

	d := campaignval.Data{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		AssignedTo:  strings.TrimSpace(r.FormValue("assigned_to")),
		DueDate:     strings.TrimSpace(r.FormValue("due_date")),
		Tags:        parseTags(r.FormValue("tags")),
	}
	if d.AssignedTo != "" {
		if _, err := primitive.ObjectIDFromHex(d.AssignedTo); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_argument", "assigned_to must be a valid user ID")
			return
		}
	}
	if b := strings.TrimSpace(r.FormValue("budget")); b != "" {
		v, err := strconv.ParseFloat(b, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_argument", "budget must be a number")
			return
		}
		d.Budget = &v
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Campaigns.GetByID(ctx, campaignID)
	if err == mongo.ErrNoDocuments {
		writeJSONError(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}
	if err != nil {
		h.Log.Error("load campaign for validation failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "unable to load campaign")
		return
	}
	d.CreatedAt = c.CreatedAt

	res, err := h.Engine.Validate(ctx, campaignval.Context{
		CampaignID: campaignID,
		Data:       d,
		Type:       vt,
		UserID:     userID,
	})
	if err != nil {
		h.Log.Error("validation run failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "validation could not be completed")
		return
	}

	if err := h.AuditLog.CampaignValidated(ctx, r, userID, campaignID.Hex(), len(res.Errors), len(res.Warnings)); err != nil {
		h.Log.Error("audit write for validation failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "audit_write_failed", "validation ran but could not be audited")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  res.IsValid(),
		"errors":   orEmpty(res.Errors),
		"warnings": orEmpty(res.Warnings),
	})
}

// orEmpty keeps empty finding lists as [] rather than null in JSON.
func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
