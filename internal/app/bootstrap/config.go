// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSecretLen is the shortest JWT secret accepted outside dev.
const minSecretLen = 32

// appConfigKeys are loaded through WAFFLE's config system:
//   - config files: mongo_uri, jwt_secret, ...
//   - environment: COURSEPLANNER_MONGO_URI, COURSEPLANNER_JWT_SECRET, ...
//   - flags: --mongo_uri, --jwt_secret, ...
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "course_planner", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},

	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session token signing secret (32+ bytes outside dev)"},
	{Name: "session_cookie_name", Default: "token", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "168h", Desc: "Session lifetime"},
	{Name: "session_refresh_after", Default: "24h", Desc: "Re-issue session tokens older than this"},

	{Name: "guest_cookie_key", Default: "", Desc: "Guest cookie key, 32 or 64 bytes (blank: random per boot)"},

	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL of the web UI"},

	{Name: "rollbar_token", Default: "", Desc: "Rollbar server token (blank disables error tracking)"},
	{Name: "rollbar_environment", Default: "", Desc: "Rollbar environment (defaults to the WAFFLE env)"},

	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "stats_cache_ttl", Default: "5m", Desc: "How long statistics stay memoized"},
	{Name: "login_max_failures", Default: 5, Desc: "Consecutive login failures before lockout"},
	{Name: "login_lockout", Default: "15m", Desc: "Lockout duration after too many failures"},

	{Name: "admin_email", Default: "", Desc: "Promote this existing account to admin on startup"},
	{Name: "allowed_origins", Default: "", Desc: "Comma-separated extra origins accepted for writes"},
}

// LoadConfig loads WAFFLE core config and the app config.
//
// Precedence is flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COURSEPLANNER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:           appValues.String("jwt_secret"),
		SessionCookieName:   appValues.String("session_cookie_name"),
		SessionDomain:       appValues.String("session_domain"),
		SessionTTL:          appValues.Duration("session_ttl", 7*24*time.Hour),
		SessionRefreshAfter: appValues.Duration("session_refresh_after", 24*time.Hour),

		GuestCookieKey: appValues.String("guest_cookie_key"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		BaseURL:            appValues.String("base_url"),

		RollbarToken:       appValues.String("rollbar_token"),
		RollbarEnvironment: appValues.String("rollbar_environment"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		StatsCacheTTL:    appValues.Duration("stats_cache_ttl", 5*time.Minute),
		LoginMaxFailures: appValues.Int("login_max_failures"),
		LoginLockout:     appValues.Duration("login_lockout", 15*time.Minute),

		AdminEmail:     appValues.String("admin_email"),
		AllowedOrigins: splitList(appValues.String("allowed_origins")),
	}
	if appCfg.RollbarEnvironment == "" {
		appCfg.RollbarEnvironment = coreCfg.Env
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig rejects configurations that would fail later or run
// insecurely: a malformed Mongo URI, a short JWT secret outside dev, or a
// guest cookie key of the wrong length.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if coreCfg.Env != "dev" && len(appCfg.JWTSecret) < minSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d bytes outside dev", minSecretLen)
	}

	switch len(appCfg.GuestCookieKey) {
	case 0:
		logger.Warn("guest_cookie_key not set; guest data will not survive a restart")
	case 32, 64:
	default:
		return fmt.Errorf("guest_cookie_key must be 32 or 64 bytes, got %d", len(appCfg.GuestCookieKey))
	}

	if appCfg.LoginMaxFailures < 1 {
		return fmt.Errorf("login_max_failures must be at least 1")
	}
	return nil
}
