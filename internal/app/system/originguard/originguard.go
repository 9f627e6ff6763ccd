// Package originguard rejects cross-site state-changing requests. POST, PUT,
// PATCH and DELETE must carry an Origin (or, failing that, a Referer) whose
// host matches the request Host or an allowed origin.
package originguard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
)

// Guard checks request origins.
type Guard struct {
	allowed map[string]struct{}
	exempt  []string
}

// New builds a Guard. allowedOrigins are extra hosts (or full origins)
// accepted besides the request Host. exemptPrefixes are path prefixes that
// skip the check.
func New(allowedOrigins []string, exemptPrefixes ...string) *Guard {
	g := &Guard{allowed: make(map[string]struct{}), exempt: exemptPrefixes}
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		g.allowed[strings.ToLower(o)] = struct{}{}
	}
	return g
}

// Allowed reports whether r passes the check.
func (g *Guard) Allowed(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, p := range g.exempt {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}

	source := r.Header.Get("Origin")
	if source == "" || source == "null" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return false
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	if host == strings.ToLower(r.Host) {
		return true
	}
	_, ok := g.allowed[host]
	return ok
}

// Middleware answers 403 for requests that fail the check.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allowed(r) {
			jsonapi.Write(w, http.StatusForbidden, jsonapi.Envelope{
				Error: "Invalid request origin",
				Code:  "invalid_origin",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
