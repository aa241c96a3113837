// Package auditlog records security and governance events.
//
// Every governed operation (campaign validation, review decisions,
// exports) and every authentication attempt produces an audit event.
// Events are routed by category to the hash-chained governance
// collection, to the structured application log, or to both, depending
// on configuration. Governance events use the error-returning helpers:
// when the store write fails the caller must treat the operation as
// failed rather than proceed without an audit record. Authentication
// events are best effort and never block a login.
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/dalemusser/planhub/internal/app/store/governance"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Audit destinations. Each category is configured independently.
const (
	DestAll = "all" // write to the governance store and the log
	DestDB  = "db"  // write to the governance store only
	DestLog = "log" // write to the structured log only
	DestOff = "off" // discard events in this category
)

// Event categories.
const (
	CategoryGovernance = "governance"
	CategoryAuth       = "auth"
	CategoryAdmin      = "admin"
)

// Config selects a destination per event category.
type Config struct {
	Governance string // campaign, review, and export events
	Auth       string // login and logout events
	Admin      string // user administration events
}

// DefaultConfig persists and logs governance events, logs auth events,
// and persists admin events.
func DefaultConfig() Config {
	return Config{
		Governance: DestAll,
		Auth:       DestLog,
		Admin:      DestDB,
	}
}

// Logger writes audit events. A nil *Logger discards everything, so
// callers never need to guard their audit calls.
type Logger struct {
	store  *governancestore.Store
	zapLog *zap.Logger
	config Config
}

// New returns a Logger backed by the governance store and the given
// zap logger. Empty config fields fall back to the defaults.
func New(store *governancestore.Store, zapLog *zap.Logger, config Config) *Logger {
	def := DefaultConfig()
	if config.Governance == "" {
		config.Governance = def.Governance
	}
	if config.Auth == "" {
		config.Auth = def.Auth
	}
	if config.Admin == "" {
		config.Admin = def.Admin
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// categoryOf maps an action to its configuration category. Unknown
// actions are treated as governance events, the strictest category.
func categoryOf(action string) string {
	switch action {
	case models.ActionLoginSucceeded, models.ActionLoginFailed, models.ActionLoggedOut:
		return CategoryAuth
	case models.ActionUserCreated, models.ActionUserUpdated:
		return CategoryAdmin
	default:
		return CategoryGovernance
	}
}

func (l *Logger) destFor(category string) string {
	switch category {
	case CategoryAuth:
		return l.config.Auth
	case CategoryAdmin:
		return l.config.Admin
	default:
		return l.config.Governance
	}
}

// Log records a single audit event. The event is routed by the
// category of its action. A store write failure is logged and returned
// so governed callers can abort; log-only destinations never fail.
func (l *Logger) Log(ctx context.Context, action, resourceID string, userID *primitive.ObjectID, metadata map[string]string) error {
	if l == nil {
		return nil
	}

	category := categoryOf(action)
	dest := l.destFor(category)
	if dest == DestOff {
		return nil
	}

	if dest == DestAll || dest == DestLog {
		l.logToZap(category, action, resourceID, userID, metadata)
	}

	if dest == DestAll || dest == DestDB {
		if l.store == nil {
			return nil
		}
		if _, err := l.store.AppendAudit(ctx, action, resourceID, userID, metadata); err != nil {
			if l.zapLog != nil {
				l.zapLog.Error("audit write failed",
					zap.String("action", action),
					zap.String("resource_id", resourceID),
					zap.Error(err))
			}
			return err
		}
	}
	return nil
}

func (l *Logger) logToZap(category, action, resourceID string, userID *primitive.ObjectID, metadata map[string]string) {
	if l.zapLog == nil {
		return
	}

	fields := []zap.Field{
		zap.String("audit", "true"),
		zap.String("category", category),
		zap.String("action", action),
	}
	if resourceID != "" {
		fields = append(fields, zap.String("resource_id", resourceID))
	}
	if userID != nil {
		fields = append(fields, zap.String("user_id", userID.Hex()))
	}
	for k, v := range metadata {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	switch action {
	case models.ActionLoginFailed, models.ActionExportBlocked:
		l.zapLog.Warn("audit event", fields...)
	default:
		l.zapLog.Info("audit event", fields...)
	}
}

// getClientIP extracts the client IP, preferring proxy headers over
// the socket address. The RemoteAddr port is stripped when present.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func requestMeta(r *http.Request, extra map[string]string) map[string]string {
	meta := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		meta[k] = v
	}
	if r != nil {
		if ip := getClientIP(r); ip != "" {
			meta["ip"] = ip
		}
		if ua := r.UserAgent(); ua != "" {
			meta["user_agent"] = ua
		}
	}
	return meta
}

/*─────────────────────────  auth events  ─────────────────────────*/

// LoginSuccess records a completed login. Best effort.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, authMethod string) {
	if l == nil {
		return
	}
	meta := requestMeta(r, map[string]string{
		"email":       email,
		"auth_method": authMethod,
	})
	_ = l.Log(ctx, models.ActionLoginSucceeded, "", &userID, meta)
}

// LoginFailedUserNotFound records a login attempt for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	if l == nil {
		return
	}
	meta := requestMeta(r, map[string]string{
		"email":          attemptedEmail,
		"failure_reason": "user not found",
	})
	_ = l.Log(ctx, models.ActionLoginFailed, "", nil, meta)
}

// LoginFailedWrongPassword records a login attempt with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	meta := requestMeta(r, map[string]string{
		"email":          email,
		"failure_reason": "wrong password",
	})
	_ = l.Log(ctx, models.ActionLoginFailed, "", &userID, meta)
}

// LoginFailedUserSuspended records a login attempt by a suspended user.
func (l *Logger) LoginFailedUserSuspended(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	meta := requestMeta(r, map[string]string{
		"email":          email,
		"failure_reason": "user suspended",
	})
	_ = l.Log(ctx, models.ActionLoginFailed, "", &userID, meta)
}

// LoginFailedRateLimit records a login attempt rejected by the rate
// limiter before credentials were checked.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email string) {
	if l == nil {
		return
	}
	meta := requestMeta(r, map[string]string{
		"email":          email,
		"failure_reason": "rate limited",
	})
	_ = l.Log(ctx, models.ActionLoginFailed, "", nil, meta)
}

// Logout records a session ending. Invalid user IDs are tolerated so a
// corrupt session cookie can still be logged out cleanly.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	if l == nil {
		return
	}
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		userID = &oid
	}
	_ = l.Log(ctx, models.ActionLoggedOut, "", userID, requestMeta(r, nil))
}

/*──────────────────────  governance events  ──────────────────────*/

// CampaignValidated records a validation run against a campaign.
func (l *Logger) CampaignValidated(ctx context.Context, r *http.Request, userID primitive.ObjectID, campaignID string, errCount, warnCount int) error {
	if l == nil {
		return nil
	}
	meta := requestMeta(r, map[string]string{
		"errors":   strconv.Itoa(errCount),
		"warnings": strconv.Itoa(warnCount),
	})
	return l.Log(ctx, models.ActionCampaignValidated, campaignID, &userID, meta)
}

// CampaignSubmitted records a campaign entering review.
func (l *Logger) CampaignSubmitted(ctx context.Context, r *http.Request, userID primitive.ObjectID, campaignID, reviewID string) error {
	if l == nil {
		return nil
	}
	meta := requestMeta(r, map[string]string{
		"review_id": reviewID,
	})
	return l.Log(ctx, models.ActionCampaignSubmitted, campaignID, &userID, meta)
}

// ReviewDecided records a review approval or rejection.
func (l *Logger) ReviewDecided(ctx context.Context, r *http.Request, reviewerID primitive.ObjectID, campaignID, reviewID, decision string) error {
	if l == nil {
		return nil
	}
	meta := requestMeta(r, map[string]string{
		"review_id": reviewID,
		"decision":  decision,
	})
	return l.Log(ctx, models.ActionReviewDecided, campaignID, &reviewerID, meta)
}

// CampaignPublished records an approved campaign going live.
func (l *Logger) CampaignPublished(ctx context.Context, r *http.Request, userID primitive.ObjectID, campaignID string) error {
	if l == nil {
		return nil
	}
	return l.Log(ctx, models.ActionCampaignPublished, campaignID, &userID, requestMeta(r, nil))
}

// ExportSucceeded records an export that passed preflight and ran.
func (l *Logger) ExportSucceeded(ctx context.Context, r *http.Request, userID primitive.ObjectID, campaignID, period string, rows int) error {
	if l == nil {
		return nil
	}
	meta := requestMeta(r, map[string]string{
		"period": period,
		"rows":   strconv.Itoa(rows),
	})
	return l.Log(ctx, models.ActionExportSucceeded, campaignID, &userID, meta)
}

// ExportBlocked records an export refused by the preflight gate.
func (l *Logger) ExportBlocked(ctx context.Context, r *http.Request, userID primitive.ObjectID, campaignID, period, reason string) error {
	if l == nil {
		return nil
	}
	meta := requestMeta(r, map[string]string{
		"period": period,
		"reason": reason,
	})
	return l.Log(ctx, models.ActionExportBlocked, campaignID, &userID, meta)
}

/*────────────────────────  admin events  ─────────────────────────*/

// UserCreated records an administrator creating an account.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, roles string) {
	if l == nil {
		return
	}
	meta := requestMeta(r, map[string]string{
		"actor_id": actorID.Hex(),
		"roles":    roles,
	})
	_ = l.Log(ctx, models.ActionUserCreated, targetID.Hex(), &actorID, meta)
}

// UserUpdated records an administrator changing an account.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, fieldsChanged string) {
	if l == nil {
		return
	}
	meta := requestMeta(r, map[string]string{
		"actor_id":       actorID.Hex(),
		"fields_changed": fieldsChanged,
	})
	_ = l.Log(ctx, models.ActionUserUpdated, targetID.Hex(), &actorID, meta)
}
