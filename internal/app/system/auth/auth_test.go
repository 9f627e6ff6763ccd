package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long!!"

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(testSecret, "test-session", "", 7*24*time.Hour, 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func sampleUser() SessionUser {
	return SessionUser{
		ID:                  "64b7f0c2a1b2c3d4e5f60718",
		Name:                "Kim Student",
		Email:               "kim@example.com",
		Role:                "student",
		DepartmentID:        "64b7f0c2a1b2c3d4e5f60799",
		MajorType:           "double",
		OnboardingCompleted: true,
	}
}

func okHandler(seen **SessionUser) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := CurrentUser(r); ok {
			*seen = u
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptySecret(t *testing.T) {
	if _, err := NewSessionManager("", "x", "", time.Hour, time.Minute, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestSignParse_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	token, err := sm.Sign(sampleUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	u, issued, err := sm.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if *u != sampleUser() {
		t.Errorf("round trip: got %+v", *u)
	}
	if issued.IsZero() {
		t.Error("issued-at should be set")
	}
}

func TestParse_RejectsOtherSecretAndExpired(t *testing.T) {
	sm := newTestSessionManager(t)
	other, _ := NewSessionManager("another-secret-that-is-32-chars-long!!", "test-session", "", time.Hour, time.Minute, false, zap.NewNop())
	token, _ := other.Sign(sampleUser())
	if _, _, err := sm.Parse(token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}

	past := time.Now().Add(-8 * 24 * time.Hour)
	sm.now = func() time.Time { return past }
	old, _ := sm.Sign(sampleUser())
	sm.now = time.Now
	if _, _, err := sm.Parse(old); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestLoadSessionUser_InjectsUser(t *testing.T) {
	sm := newTestSessionManager(t)
	token, _ := sm.Sign(sampleUser())

	var seen *SessionUser
	req := httptest.NewRequest("GET", "/api/plans", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: token})
	rec := httptest.NewRecorder()
	sm.LoadSessionUser(okHandler(&seen)).ServeHTTP(rec, req)

	if seen == nil || seen.Email != "kim@example.com" {
		t.Fatalf("user not injected: %+v", seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("fresh token should not be re-issued")
	}
}

func TestLoadSessionUser_GarbageCookieClears(t *testing.T) {
	sm := newTestSessionManager(t)

	var seen *SessionUser
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-jwt"})
	rec := httptest.NewRecorder()
	sm.LoadSessionUser(okHandler(&seen)).ServeHTTP(rec, req)

	if seen != nil {
		t.Error("invalid token must not produce a user")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected cookie deletion, got %+v", cookies)
	}
}

type stubFetcher struct{ u *SessionUser }

func (s stubFetcher) FetchUser(ctx context.Context, id string) *SessionUser { return s.u }

func TestLoadSessionUser_RefreshesStaleToken(t *testing.T) {
	sm := newTestSessionManager(t)
	issued := time.Now().Add(-25 * time.Hour)
	sm.now = func() time.Time { return issued }
	token, _ := sm.Sign(sampleUser())
	sm.now = time.Now

	promoted := sampleUser()
	promoted.Role = "admin"
	sm.SetUserFetcher(stubFetcher{u: &promoted})

	var seen *SessionUser
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: token})
	rec := httptest.NewRecorder()
	sm.LoadSessionUser(okHandler(&seen)).ServeHTTP(rec, req)

	if seen == nil || seen.Role != "admin" {
		t.Fatalf("refreshed user not injected: %+v", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "" || !cookies[0].HttpOnly {
		t.Fatalf("expected a re-issued httpOnly cookie, got %+v", cookies)
	}
}

func TestLoadSessionUser_DeletedUserSignedOut(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, _ := sm.Sign(sampleUser())
	sm.now = time.Now
	sm.SetUserFetcher(stubFetcher{})

	var seen *SessionUser
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: token})
	sm.LoadSessionUser(okHandler(&seen)).ServeHTTP(httptest.NewRecorder(), req)

	if seen != nil {
		t.Error("deleted user must not be injected")
	}
}

func TestLoadSessionUser_FreshTokenChecksStoredUser(t *testing.T) {
	admin := sampleUser()
	admin.Role = "admin"
	student := sampleUser()

	tests := []struct {
		name       string
		stored     *SessionUser
		wantStatus int
		wantCookie bool
	}{
		{"deleted user", nil, http.StatusUnauthorized, true},
		{"demoted admin", &student, http.StatusForbidden, true},
		{"unchanged admin", &admin, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newTestSessionManager(t)
			token, _ := sm.Sign(admin)
			sm.SetUserFetcher(stubFetcher{u: tt.stored})

			h := sm.LoadSessionUser(sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))
			req := httptest.NewRequest("GET", "/api/admin/users", nil)
			req.AddCookie(&http.Cookie{Name: "test-session", Value: token})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("got %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := len(rec.Result().Cookies()) > 0; got != tt.wantCookie {
				t.Errorf("cookie written = %v, want %v", got, tt.wantCookie)
			}
		})
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/plans", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want 401", rec.Code)
	}

	u := sampleUser()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, WithTestUser(httptest.NewRequest("GET", "/api/plans", nil), &u))
	if rec.Code != http.StatusOK {
		t.Errorf("signed in: got %d, want 200", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		user *SessionUser
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"student", &SessionUser{ID: "1", Role: "student"}, http.StatusForbidden},
		{"admin", &SessionUser{ID: "2", Role: "admin"}, http.StatusOK},
		{"admin uppercase", &SessionUser{ID: "3", Role: "ADMIN"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/admin/users", nil)
			if tt.user != nil {
				req = WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
