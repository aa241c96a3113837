// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

// NewHandler constructs a logout Handler. The audit logger may be nil in
// tests; sign-out then skips the audit trail entry.
func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// ServeLogout handles GET /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	userIDHex := ""
	if u, ok := auth.CurrentUser(r); ok {
		userIDHex = u.ID
	}

	if err := h.SessionMgr.ClearSession(w, r); err != nil {
		h.Log.Error("logout: clear session", zap.Error(err))
	}

	if h.AuditLog != nil && userIDHex != "" {
		h.AuditLog.Logout(r.Context(), r, userIDHex)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
