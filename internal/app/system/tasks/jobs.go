// internal/app/system/tasks/jobs.go
//
// Package tasks defines the background jobs the server runs on tickers.
package tasks

import (
	"context"
	"time"

	"github.com/hwankr/courseplanner/internal/app/store/oauthstate"
	"github.com/hwankr/courseplanner/internal/app/system/ttlcache"
	"github.com/hwankr/courseplanner/internal/app/system/workers"
	"go.uber.org/zap"
)

// OAuthStateCleanup removes expired OAuth state tokens. It backs up the TTL
// index, whose monitor can lag by a minute or more.
func OAuthStateCleanup(states *oauthstate.Store, logger *zap.Logger) *workers.Periodic {
	return workers.NewPeriodic("oauth-state-cleanup", time.Hour, 30*time.Second, logger,
		func(ctx context.Context) (int64, error) {
			return states.CleanupExpired(ctx)
		})
}

// CacheSweep evicts expired cache entries that were never read again.
func CacheSweep(cache *ttlcache.Cache, interval time.Duration, logger *zap.Logger) *workers.Periodic {
	return workers.NewPeriodic("cache-sweep", interval, 5*time.Second, logger,
		func(ctx context.Context) (int64, error) {
			return int64(cache.Sweep()), nil
		})
}
