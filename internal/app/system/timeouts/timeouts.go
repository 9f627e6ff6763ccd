// Package timeouts holds the context deadlines handlers and stores use for
// database work.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries and plan mutations
//   - Long: cascading deletes, onboarding, statistics aggregation
//   - Batch: catalog seeding from the admin CLI
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

var (
	mu      sync.RWMutex
	current = defaults()
)

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	}
}

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(current)
}

func Ping() time.Duration   { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration  { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration   { return get(func(c Config) time.Duration { return c.Long }) }
func Batch() time.Duration  { return get(func(c Config) time.Duration { return c.Batch }) }

// Configure overrides timeouts. Call during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&current.Ping, cfg.Ping)
	merge(&current.Short, cfg.Short)
	merge(&current.Medium, cfg.Medium)
	merge(&current.Long, cfg.Long)
	merge(&current.Batch, cfg.Batch)
}

func merge(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG and TIMEOUT_BATCH (Go durations such as "5s" or "2m").
// Invalid values are ignored. Returns how many were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	read := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
				n++
			}
		}
	}
	read("TIMEOUT_PING", &cfg.Ping)
	read("TIMEOUT_SHORT", &cfg.Short)
	read("TIMEOUT_MEDIUM", &cfg.Medium)
	read("TIMEOUT_LONG", &cfg.Long)
	read("TIMEOUT_BATCH", &cfg.Batch)
	Configure(cfg)
	return n
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete account")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
