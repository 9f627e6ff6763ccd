// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/hwankr/courseplanner/internal/app/store/oauthstate"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/errtrack"
	"github.com/hwankr/courseplanner/internal/app/system/ratelimit"
	"github.com/hwankr/courseplanner/internal/app/system/tasks"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/app/system/ttlcache"
	"github.com/hwankr/courseplanner/internal/app/system/workers"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// cacheSweepInterval is how often expired statistics are evicted.
const cacheSweepInterval = time.Minute

// runtime is the process-wide state built in Startup and torn down in
// Shutdown. BuildHandler reads it.
type runtime struct {
	tracker *errtrack.Tracker
	cache   *ttlcache.Cache
	limits  *ratelimit.Set
	workers *workers.Group
}

var (
	rtMu sync.Mutex
	rt   *runtime
)

func newRuntime(appCfg AppConfig, logger *zap.Logger) *runtime {
	host, _ := os.Hostname()
	return &runtime{
		tracker: errtrack.New(errtrack.Config{
			Token:       appCfg.RollbarToken,
			Environment: appCfg.RollbarEnvironment,
			ServerHost:  host,
		}, logger),
		cache:   ttlcache.New(appCfg.StatsCacheTTL),
		limits:  ratelimit.NewSet(ratelimit.DefaultRules),
		workers: &workers.Group{},
	}
}

// currentRuntime returns the runtime, building one when Startup was skipped.
func currentRuntime(appCfg AppConfig, logger *zap.Logger) *runtime {
	rtMu.Lock()
	defer rtMu.Unlock()
	if rt == nil {
		rt = newRuntime(appCfg, logger)
	}
	return rt
}

// Startup runs once after the database is ready and before the handler is
// built: it applies timeout overrides, sets up error tracking, the
// statistics cache and rate limiters, starts the background workers and
// promotes the configured admin account.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	r := currentRuntime(appCfg, logger)
	r.workers.Add(tasks.OAuthStateCleanup(oauthstate.New(deps.MongoDatabase), logger))
	r.workers.Add(tasks.CacheSweep(r.cache, cacheSweepInterval, logger))

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps.MongoDatabase, appCfg.AdminEmail, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin promotes the account with email to admin. A missing account
// is only logged: the operator registers first, then restarts or runs the
// admin CLI.
func ensureAdmin(ctx context.Context, db *mongo.Database, email string, logger *zap.Logger) error {
	users := userstore.New(db)
	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		logger.Warn("admin_email has no account yet; register it to receive admin rights", zap.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}
	if u.Role == models.RoleAdmin {
		return nil
	}
	if _, err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return err
	}
	logger.Info("promoted configured account to admin", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
	return nil
}
