// internal/app/features/users/handler.go

// Package users is the account administration area: listing, creating,
// and editing actors, including their role flags, tier, explicit
// permission grants, team memberships, and export identity.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/navigation"
	"github.com/dalemusser/planhub/internal/app/system/perms"
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

	Users    *userstore.Store
	Resolver *perms.Resolver
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Users:    userstore.New(db),
		Resolver: perms.NewResolver(db),
	}
}

var errNotSignedIn = errors.New("no signed-in user")

// actorFromSession loads the full user document behind the session
// identity; the resolver needs roles, grants and tier.
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

// targetFromPath parses the {id} route parameter and loads the target
// account. The bool reports whether the caller may proceed; on false a
// response has already been written.
func (h *Handler) targetFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request, idHex string) (*models.User, bool) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "bad user id", err, "Invalid user ID.", "/users")
		return nil, false
	}

	u, err := h.Users.GetByID(ctx, id)
	if err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, r, "User not found.", "/users")
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "Unable to load the account.", "/users")
		return nil, false
	}
	return u, true
}

func backToUsersURL(r *http.Request) string {
	return navigation.SafeBackURL(r, navigation.UsersBackURL)
}
