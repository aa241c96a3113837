// internal/app/system/auth/auth.go

// Package auth owns the cookie session and the signed-in user that rides
// along with each request. The session stores only the user ID; the
// middleware re-fetches the user on every request so role changes and
// suspensions take effect immediately, which the access-control rules
// depend on.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

// SessionUser is the lightweight identity injected into r.Context() by
// LoadSessionUser. Role is the user's primary role; handlers that need
// the full role and grant maps load the user record from the store.
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// UserFetcher loads the SessionUser for a stored user ID on each
// request. FetchUser returns nil when the user no longer exists or may
// not sign in; the middleware treats that as signed out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager wraps the cookie store plus the policy middlewares that
// gate routes on it.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	logger *zap.Logger
	fetch  UserFetcher
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure with SameSite=None so OAuth redirects survive; in
// dev over plain http, Lax.
func NewSessionManager(sessionKey, cookieName, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("cookie", cookieName),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: cookieName, logger: logger}, nil
}

// SetUserFetcher installs the per-request user loader. Without one,
// LoadSessionUser leaves every request unauthenticated.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetch = f }

// GetSession returns the request's session, or a fresh one plus the
// decode error when the cookie is stale or tampered with. Callers can
// classify the error with securecookie.Error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// staleCookie reports whether err is a securecookie decode failure: a
// cookie signed with a rotated key, or one that was tampered with.
// Decode failures are routine after a key rotation and the store hands
// back a usable fresh session alongside them.
func staleCookie(err error) bool {
	scErr, ok := err.(securecookie.Error)
	return ok && scErr.IsDecode()
}

// IssueSession marks the session authenticated for the given user ID.
// A stale or tampered cookie on the request is replaced with a fresh
// session rather than failing the sign-in.
func (sm *SessionManager) IssueSession(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		if staleCookie(err) {
			sm.logger.Warn("stale session cookie replaced at sign-in",
				zap.String("user_id", userID),
				zap.Error(err))
		} else {
			sm.logger.Error("session store error at sign-in, issuing fresh session",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// ClearSession signs the user out by expiring the cookie.
func (sm *SessionManager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the signed-in user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects a SessionUser into the request context, the same
// way LoadSessionUser does. Handler tests use it to simulate a session.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser resolves the session cookie to a SessionUser and puts
// it in context. A stale cookie or a vanished user falls through as
// signed out rather than failing the request.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			// Continue unauthenticated either way; a decode failure is
			// an expected stale cookie, anything else deserves a look.
			if staleCookie(err) {
				sm.logger.Debug("stale session cookie ignored", zap.Error(err))
			} else {
				sm.logger.Warn("session store error, treating request as signed out", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		isAuth, _ := sess.Values[isAuthKey].(bool)
		userID, _ := sess.Values[userIDKey].(string)
		if !isAuth || userID == "" || sm.fetch == nil {
			next.ServeHTTP(w, r)
			return
		}

		if u := sm.fetch.FetchUser(r.Context(), userID); u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Route gates                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		redirectToLogin(w, r)
	})
}

// RequireRole ensures the signed-in user holds one of the allowed roles.
// Missing session gets 401 semantics, wrong role gets 403 semantics, each
// with the HTMX/HTML/API triage RequireSignedIn uses.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				redirectToLogin(w, r)
				return
			}

			if _, has := set[strings.ToLower(u.Role)]; !has {
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", "/forbidden")
					w.WriteHeader(http.StatusForbidden)
					return
				}
				if wantsHTML(r) {
					http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(currentURI(r))

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
