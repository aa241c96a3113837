// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:  db,
		Log: logger,
	}
}

// ServeDashboard dispatches to the view for the signed-in user's
// primary role. Editors land on their own work queue, reviewers on the
// review queue, admins on the full operational summary, and everyone
// else gets the read-only overview.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	switch u.Role {
	case models.RoleAdmin:
		h.ServeAdmin(w, r)
	case models.RoleEditor:
		h.ServeEditor(w, r)
	case models.RoleReviewer:
		h.ServeReviewer(w, r)
	default:
		h.ServeViewer(w, r)
	}
}
