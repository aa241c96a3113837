// internal/app/features/governance/handler.go

// Package governance serves the human side of the review workflow: the
// pending queue with approve/reject decisions and the tamper-evident
// audit log browser.
package governance

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/planhub/internal/app/features/errors"
	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/perms"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger

	Campaigns  *campaignstore.Store
	Users      *userstore.Store
	Governance *governancestore.Store
	Resolver   *perms.Resolver
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		ErrLog:     errLog,
		AuditLog:   audit,
		Campaigns:  campaignstore.New(db),
		Users:      userstore.New(db),
		Governance: governancestore.New(db),
		Resolver:   perms.NewResolver(db),
	}
}

var errNotSignedIn = errors.New("no signed-in user")

// actorFromSession loads the full user document behind the session
// identity; permission decisions need roles, grants and tier.
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

// campaignTitles batch-resolves campaign titles for queue rows.
func (h *Handler) campaignTitles(ctx context.Context, ids []primitive.ObjectID) map[string]string {
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles
	}

	opts := options.Find().SetProjection(bson.M{"title": 1})
	cur, err := h.DB.Collection("campaigns").Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		h.Log.Error("campaign title lookup failed", zap.Error(err))
		return titles
	}
	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Title string             `bson:"title"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		h.Log.Error("campaign title decode failed", zap.Error(err))
		return titles
	}
	for _, d := range docs {
		titles[d.ID.Hex()] = d.Title
	}
	return titles
}
