// internal/app/features/campaigns/handler.go
package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/app/system/perms"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for campaigns: the list,
// the planning forms, and the governance pipeline endpoints
// (validate, submit, export).
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger

	Campaigns  *campaignstore.Store
	Users      *userstore.Store
	Governance *governancestore.Store
	Engine     *campaignval.Engine
	Resolver   *perms.Resolver

	// ExportDenylist names channels that may never leave the system,
	// checked before the preflight gate runs.
	ExportDenylist []string
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, exportDenylist []string, logger *zap.Logger) *Handler {
	return &Handler{
		DB:             db,
		Log:            logger,
		ErrLog:         errLog,
		AuditLog:       audit,
		Campaigns:      campaignstore.New(db),
		Users:          userstore.New(db),
		Governance:     governancestore.New(db),
		Engine:         campaignval.New(db),
		Resolver:       perms.NewResolver(db),
		ExportDenylist: exportDenylist,
	}
}

var errNotSignedIn = errors.New("no signed-in user")

// actorFromSession loads the full user document behind the session
// identity. Policy decisions need roles, grants, teams and tier, which
// the lightweight session user does not carry.
func (h *Handler) actorFromSession(ctx context.Context, r *http.Request) (*models.User, error) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		return nil, errNotSignedIn
	}
	uid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		return nil, fmt.Errorf("bad session user id %q: %w", su.ID, err)
	}
	return h.Users.GetByID(ctx, uid)
}

// campaignFromPath parses the {id} route parameter and loads the
// campaign. The bool reports whether the caller may proceed; on false a
// response has already been written.
func (h *Handler) campaignFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request, idHex string) (*models.Campaign, bool) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusBadRequest, "invalid_argument", "invalid campaign ID")
		} else {
			h.ErrLog.LogBadRequest(w, r, "bad campaign id", err, "Invalid campaign ID.", "/campaigns")
		}
		return nil, false
	}

	c, err := h.Campaigns.GetByID(ctx, id)
	if err == mongo.ErrNoDocuments {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusNotFound, "not_found", "campaign not found")
		} else {
			uierrors.RenderNotFound(w, r, "Campaign not found.", "/campaigns")
		}
		return nil, false
	}
	if err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, "internal", "unable to load campaign")
		} else {
			h.ErrLog.LogServerError(w, r, "load campaign failed", err, "Unable to load the campaign.", "/campaigns")
		}
		return nil, false
	}
	return c, true
}

// dataFromCampaign shapes a stored campaign the way the validation
// engine expects its payload: dates as strings, assignee as hex.
func dataFromCampaign(c *models.Campaign) campaignval.Data {
	d := campaignval.Data{
		Title:       c.Title,
		Description: c.Description,
		Budget:      c.Budget,
		Tags:        c.Tags,
		CreatedAt:   c.CreatedAt,
	}
	if c.AssignedTo != nil {
		d.AssignedTo = c.AssignedTo.Hex()
	}
	if !c.DueDate.IsZero() {
		d.DueDate = c.DueDate.Format("2006-01-02")
	}
	return d
}

// wantsJSON reports whether the caller asked for the JSON contract
// rather than the HTML flow.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   category,
		"message": message,
	})
}
