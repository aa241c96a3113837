// internal/app/features/profile/handler.go

// Package profile is the signed-in user's own account page. It shows
// identity and access details and carries two self-service forms: one
// to repair the export identity so campaign exports stop failing
// preflight, and one to change the password on password accounts.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger

	Users *userstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Users:    userstore.New(db),
	}
}

var errNotSignedIn = errors.New("no signed-in user")

// currentUser loads the full account document behind the session
// identity. Every handler here operates on that account and no other.
func (h *Handler) currentUser(ctx context.Context, r *http.Request) (*models.User, error) {
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

// requireAccount resolves the session to its account document. The
// bool reports whether the caller may proceed; on false a response has
// already been written.
func (h *Handler) requireAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := h.currentUser(ctx, r)
	if err == nil {
		return user, true
	}
	if errors.Is(err, errNotSignedIn) {
		uierrors.RenderUnauthorized(w, r, "/login")
		return nil, false
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, r, "Your account no longer exists.", "/login")
		return nil, false
	}
	h.ErrLog.LogServerError(w, r, "load account failed", err, "Unable to load your account.", "/dashboard")
	return nil, false
}
