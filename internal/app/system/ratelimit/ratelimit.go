// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
)

// Limiter is a fixed-window counter per key. Counters live in process
// memory; each server instance limits independently. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter and starts its cleanup loop.
// limit: maximum requests allowed per duration
// duration: the time window for counting requests
func New(limit int, duration time.Duration) *Limiter {
	l := newLimiter(limit, duration, time.Now)
	go l.cleanupLoop(duration * 2)
	return l
}

func newLimiter(limit int, duration time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Allow checks if a request from the given key should be allowed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]

	if !exists || !now.Before(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// RetryAfter returns how long until key's window resets (0 if not limited).
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok {
		return 0
	}
	d := w.expiresAt.Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}

// Remaining returns how many requests are left for this key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || !l.now().Before(w.expiresAt) {
		return l.limit
	}
	if remaining := l.limit - w.count; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset clears the counter for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup loop.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// sweep removes expired windows.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for key, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, key)
			n++
		}
	}
	return n
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Limiter types.
const (
	TypeAuth     = "auth"
	TypeAPIWrite = "api-write"
	TypeFeedback = "feedback"
)

// Rule configures one limiter type.
type Rule struct {
	Limit  int
	Window time.Duration
}

// DefaultRules are the per-IP limits applied when none are configured.
var DefaultRules = map[string]Rule{
	TypeAuth:     {Limit: 10, Window: time.Minute},
	TypeAPIWrite: {Limit: 120, Window: time.Minute},
	TypeFeedback: {Limit: 5, Window: 10 * time.Minute},
}

// Set holds one Limiter per type, each keyed by client IP.
type Set struct {
	limiters map[string]*Limiter
}

// NewSet builds limiters for rules.
func NewSet(rules map[string]Rule) *Set {
	s := &Set{limiters: make(map[string]*Limiter, len(rules))}
	for typ, rule := range rules {
		s.limiters[typ] = New(rule.Limit, rule.Window)
	}
	return s
}

// Limiter returns the limiter for typ, or nil.
func (s *Set) Limiter(typ string) *Limiter {
	if s == nil {
		return nil
	}
	return s.limiters[typ]
}

// Stop stops every limiter's cleanup loop.
func (s *Set) Stop() {
	if s == nil {
		return
	}
	for _, l := range s.limiters {
		l.Stop()
	}
}

// Middleware rejects requests over typ's limit with 429. With writesOnly,
// GET/HEAD/OPTIONS pass through uncounted.
func (s *Set) Middleware(typ string, writesOnly bool) func(http.Handler) http.Handler {
	l := s.Limiter(typ)
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if writesOnly && !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			key := ClientIP(r)
			if !l.Allow(key) {
				secs := int(math.Ceil(l.RetryAfter(key).Seconds()))
				jsonapi.RateLimited(w, secs)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
