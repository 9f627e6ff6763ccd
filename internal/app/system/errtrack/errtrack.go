// Package errtrack reports unexpected errors to Rollbar. Without a token
// it only logs through zap.
package errtrack

import (
	"net/http"
	"sync"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"
)

// Config configures the tracker.
type Config struct {
	Token       string
	Environment string
	CodeVersion string
	ServerHost  string
}

// Person identifies the signed-in user attached to a report.
type Person struct {
	ID    string
	Name  string
	Email string
}

// Tracker sends errors to Rollbar.
type Tracker struct {
	enabled bool
	log     *zap.Logger
	mu      sync.Mutex
}

// New configures the global Rollbar client. An empty token disables
// remote reporting.
func New(cfg Config, logger *zap.Logger) *Tracker {
	t := &Tracker{enabled: cfg.Token != "", log: logger}
	if !t.enabled {
		rollbar.SetEnabled(false)
		logger.Info("error tracking disabled (no rollbar token)")
		return t
	}
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	if cfg.ServerHost != "" {
		rollbar.SetServerHost(cfg.ServerHost)
	}
	rollbar.SetEnabled(true)
	logger.Info("error tracking enabled", zap.String("environment", cfg.Environment))
	return t
}

// Report sends err with request context. A nil Tracker is a no-op.
func (t *Tracker) Report(r *http.Request, err error, person *Person, extras map[string]interface{}) {
	if t == nil || err == nil || !t.enabled {
		return
	}
	// The Rollbar person is process-global.
	t.mu.Lock()
	defer t.mu.Unlock()
	if person != nil {
		rollbar.SetPerson(person.ID, person.Name, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	if r != nil {
		rollbar.RequestErrorWithExtras(rollbar.ERR, r, err, extras)
		return
	}
	rollbar.ErrorWithExtras(rollbar.ERR, err, extras)
}

// Close flushes pending reports.
func (t *Tracker) Close() {
	if t == nil || !t.enabled {
		return
	}
	rollbar.Wait()
	t.log.Info("error tracker flushed")
}
