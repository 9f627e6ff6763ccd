// Package auth issues and verifies the session cookie: a signed JWT held in
// an httpOnly cookie. Tokens last SessionManager.ttl and are re-issued once
// they are older than refreshAfter or the stored user has changed.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionUser is what we carry in the token & inject into r.Context().
type SessionUser struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Role                  string `json:"role"`
	DepartmentID          string `json:"departmentId,omitempty"`
	SecondaryDepartmentID string `json:"secondaryDepartmentId,omitempty"`
	MajorType             string `json:"majorType,omitempty"`
	OnboardingCompleted   bool   `json:"onboardingCompleted"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *SessionUser) IsAdmin() bool { return u != nil && u.Role == "admin" }

// Claims is the JWT payload.
type Claims struct {
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Role                  string `json:"role"`
	DepartmentID          string `json:"dept,omitempty"`
	SecondaryDepartmentID string `json:"dept2,omitempty"`
	MajorType             string `json:"major,omitempty"`
	OnboardingCompleted   bool   `json:"onb"`
	jwt.RegisteredClaims
}

// UserFetcher loads the stored user behind a token on each request.
// It returns nil when the user no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager issues and verifies session tokens.
type SessionManager struct {
	secret       []byte
	cookieName   string
	domain       string
	ttl          time.Duration
	refreshAfter time.Duration
	secure       bool
	log          *zap.Logger
	fetcher      UserFetcher
	now          func() time.Time
}

var ErrInvalidToken = errors.New("invalid session token")

// NewSessionManager builds a SessionManager. secret must be non-empty;
// shorter than 32 bytes only draws a warning so local dev keeps working.
func NewSessionManager(secret, cookieName, domain string, ttl, refreshAfter time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended", zap.Int("length", len(secret)))
	}
	if cookieName == "" {
		cookieName = "courseplanner-session"
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if refreshAfter <= 0 || refreshAfter > ttl {
		refreshAfter = 24 * time.Hour
	}
	return &SessionManager{
		secret:       []byte(secret),
		cookieName:   cookieName,
		domain:       domain,
		ttl:          ttl,
		refreshAfter: refreshAfter,
		secure:       secure,
		log:          logger,
		now:          time.Now,
	}, nil
}

// SetUserFetcher enables fresh user data on token refresh.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// CookieName returns the session cookie name.
func (sm *SessionManager) CookieName() string { return sm.cookieName }

// Sign returns a signed token for u.
func (sm *SessionManager) Sign(u SessionUser) (string, error) {
	now := sm.now()
	claims := Claims{
		Name:                  u.Name,
		Email:                 u.Email,
		Role:                  u.Role,
		DepartmentID:          u.DepartmentID,
		SecondaryDepartmentID: u.SecondaryDepartmentID,
		MajorType:             u.MajorType,
		OnboardingCompleted:   u.OnboardingCompleted,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
}

// Parse verifies a token and returns its user and issue time.
func (sm *SessionManager) Parse(token string) (*SessionUser, time.Time, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(sm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, time.Time{}, ErrInvalidToken
	}
	var issued time.Time
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	return &SessionUser{
		ID:                    claims.Subject,
		Name:                  claims.Name,
		Email:                 claims.Email,
		Role:                  claims.Role,
		DepartmentID:          claims.DepartmentID,
		SecondaryDepartmentID: claims.SecondaryDepartmentID,
		MajorType:             claims.MajorType,
		OnboardingCompleted:   claims.OnboardingCompleted,
	}, issued, nil
}

// Issue signs u and sets the session cookie.
func (sm *SessionManager) Issue(w http.ResponseWriter, u SessionUser) error {
	token, err := sm.Sign(u)
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(token, int(sm.ttl/time.Second)))
	return nil
}

// Clear deletes the session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie("", -1))
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		Domain:   sm.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0)
	}
	return c
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context. Tests only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser injects the user into context if the cookie carries a
// valid token. With a fetcher set, the stored user is loaded on every
// request: a user that no longer exists is signed out, and role, department
// or onboarding changes apply at once. The cookie is re-issued when those
// fields changed or the token is older than refreshAfter.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sm.cookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, issued, err := sm.Parse(c.Value)
		if err != nil {
			sm.Clear(w)
			next.ServeHTTP(w, r)
			return
		}

		reissue := sm.now().Sub(issued) >= sm.refreshAfter
		if sm.fetcher != nil {
			fresh := sm.fetcher.FetchUser(r.Context(), u.ID)
			if fresh == nil {
				sm.Clear(w)
				next.ServeHTTP(w, r)
				return
			}
			if *fresh != *u {
				reissue = true
			}
			u = fresh
		}
		if reissue {
			if err := sm.Issue(w, *u); err != nil {
				sm.log.Warn("session refresh failed", zap.Error(err), zap.String("user_id", u.ID))
			}
		}

		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures there is a user with one of the allowed roles.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				writeError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// writeError writes the API error envelope. jsonapi depends on this
// package, so the envelope is spelled out here.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}
