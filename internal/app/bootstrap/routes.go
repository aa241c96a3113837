// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authgooglefeature "github.com/dalemusser/planhub/internal/app/features/authgoogle"
	campaignsfeature "github.com/dalemusser/planhub/internal/app/features/campaigns"
	dashboardfeature "github.com/dalemusser/planhub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/planhub/internal/app/features/errors"
	governancefeature "github.com/dalemusser/planhub/internal/app/features/governance"
	healthfeature "github.com/dalemusser/planhub/internal/app/features/health"
	homefeature "github.com/dalemusser/planhub/internal/app/features/home"
	loginfeature "github.com/dalemusser/planhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/planhub/internal/app/features/logout"
	profilefeature "github.com/dalemusser/planhub/internal/app/features/profile"
	usersfeature "github.com/dalemusser/planhub/internal/app/features/users"
	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	"github.com/dalemusser/planhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// PlanHub initializes the template engine, applies session middleware,
// builds the shared audit logger, and mounts feature routers for all
// application areas: home, login, dashboard, campaigns, governance,
// account administration, and the self-service profile. The whole
// router is wrapped in CSRF protection; every form template carries
// the token.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on
	// each request. Role changes, suspensions, and profile updates take
	// effect immediately instead of waiting for the cookie to expire.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.PlanHubMongoDatabase))

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	db := deps.PlanHubMongoDatabase

	// One audit logger is shared by every feature so all events land in
	// the same tamper-evident trail.
	audit := auditlog.New(governancestore.New(db), logger, auditlog.Config{
		Governance: appCfg.AuditLogGovernance,
		Auth:       appCfg.AuditLogAuth,
		Admin:      appCfg.AuditLogAdmin,
	})

	googleEnabled := appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != ""

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Set before mounting so subrouters inherit the branded 404 page.
	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.PlanHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public landing page
	homeHandler := homefeature.NewHandler(db, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	limiter := ratelimit.NewLoginLimiter()
	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, audit, limiter, googleEnabled, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	if googleEnabled {
		googleHandler := authgooglefeature.NewHandler(db, sessionMgr, errLog, audit,
			oauthstate.New(db), appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	}

	// Error pages
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Role-aware dashboard
	dashboardHandler := dashboardfeature.NewHandler(db, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	// Campaign planning, validation, and export
	campaignsHandler := campaignsfeature.NewHandler(db, errLog, audit, appCfg.ExportDenylist, logger)
	r.Mount("/campaigns", campaignsfeature.Routes(campaignsHandler, sessionMgr))

	// Review queue and audit trail
	governanceHandler := governancefeature.NewHandler(db, errLog, audit, logger)
	r.Mount("/governance", governancefeature.Routes(governanceHandler, sessionMgr))

	// Account administration
	usersHandler := usersfeature.NewHandler(db, errLog, audit, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	// Self-service profile
	profileHandler := profilefeature.NewHandler(db, errLog, audit, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// CSRF protection wraps the whole router. Safe methods pass through;
	// every form posts the token via the hidden gorilla.csrf.Token field.
	protect := csrf.Protect([]byte(appCfg.CSRFKey),
		csrf.Secure(secure),
		csrf.Path("/"),
	)

	return protect(r), nil
}
