// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for the course planner.
//
// Values come from COURSEPLANNER_* environment variables, config files or
// flags (see LoadConfig). WAFFLE's CoreConfig covers ports, TLS, logging
// and CORS; everything specific to this service lives here.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Member sessions (JWT in an httpOnly cookie)
	JWTSecret           string
	SessionCookieName   string
	SessionDomain       string        // blank means current host
	SessionTTL          time.Duration // token lifetime
	SessionRefreshAfter time.Duration // re-sign tokens older than this

	// Guest cookies; 32 bytes sign, 64 bytes sign+encrypt, empty is random per boot
	GuestCookieKey string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Where the UI lives; OAuth callbacks and redirects derive from it.
	BaseURL string

	// Error tracking
	RollbarToken       string
	RollbarEnvironment string

	// Audit logging: all, db, log or off
	AuditLogAuth  string
	AuditLogAdmin string

	StatsCacheTTL time.Duration

	// Login lockout
	LoginMaxFailures int
	LoginLockout     time.Duration

	// Promoted to admin on startup when the account exists.
	AdminEmail string

	// Extra origins accepted by the same-origin guard.
	AllowedOrigins []string
}
