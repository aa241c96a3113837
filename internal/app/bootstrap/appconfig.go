// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig is where everything specific to PlanHub lives: the Mongo
// connection, session and CSRF secrets, OAuth credentials, export
// policy, and audit trail behavior.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: planhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // How long a signed-in session lasts

	// CSRF protection key. Forms break without it, so a dev default is
	// provided but production must set its own.
	CSRFKey string

	// Google OAuth configuration. Both must be set to enable the
	// "Sign in with Google" flow; leaving them blank disables it.
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth callback links (e.g., https://planhub.example.com)
	BaseURL string

	// ExportDenylist names marketing channels that may never leave the
	// system through the export gate, regardless of campaign status.
	ExportDenylist []string

	// Audit trail destinations per event category: "all", "db", "log",
	// or "off".
	AuditLogGovernance string
	AuditLogAuth       string
	AuditLogAdmin      string

	// How often the background integrity worker re-verifies the audit
	// trail's hashes. Zero disables the worker.
	AuditSweepInterval time.Duration

	// AdminEmail names the bootstrap administrator. On startup the
	// account is created (or promoted) so a fresh deployment always has
	// a working way into the admin area.
	AdminEmail string
}
