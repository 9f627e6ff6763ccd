package login_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hwankr/courseplanner/internal/app/features/login"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/system/auditlog"
	"github.com/hwankr/courseplanner/internal/app/system/guest"
	"github.com/hwankr/courseplanner/internal/app/system/indexes"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	logger := zap.NewNop()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Auth: auditlog.DB, Admin: auditlog.DB})
	h := login.NewHandler(db, testutil.NewSessionManager(t), al, guest.New(nil, false), &jsonapi.Reporter{Log: logger}, 2, 0, logger)
	return h, testutil.NewFixtures(t, db)
}

func TestHandleRegister(t *testing.T) {
	h, fx := newTestHandler(t)

	body := map[string]string{"email": "Kim@Example.com", "password": "long-enough-pw", "name": "  Kim  "}
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.JSONRequest(t, "POST", "/api/auth/register", body, nil))
	testutil.AssertStatus(t, rec, http.StatusCreated)

	var view login.SessionView
	testutil.DecodeData(t, rec, &view)
	if !view.Authenticated || view.User.Email != "kim@example.com" || view.User.Name != "Kim" {
		t.Errorf("unexpected session: %+v", view.User)
	}
	if view.OnboardingState != "not_started" {
		t.Errorf("onboardingState = %q, want not_started", view.OnboardingState)
	}
	if testutil.SessionCookie(rec, "test-session") == nil {
		t.Error("expected session cookie")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := fx.DB().Collection("audit_events").CountDocuments(ctx, bson.M{"event_type": audit.EventRegistered})
	if err != nil || n != 1 {
		t.Errorf("registered audit events = %d, %v", n, err)
	}

	rec = httptest.NewRecorder()
	h.HandleRegister(rec, testutil.JSONRequest(t, "POST", "/api/auth/register", body, nil))
	testutil.AssertStatus(t, rec, http.StatusConflict)
	if env := testutil.DecodeEnvelope(t, rec); env.Code != "email_taken" {
		t.Errorf("code = %q, want email_taken", env.Code)
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"short password", map[string]string{"email": "a@example.com", "password": "short", "name": "A"}},
		{"bad email", map[string]string{"email": "not-an-email", "password": "long-enough-pw", "name": "A"}},
		{"blank name", map[string]string{"email": "a@example.com", "password": "long-enough-pw", "name": "   "}},
		{"unknown field", map[string]string{"email": "a@example.com", "password": "long-enough-pw", "name": "A", "role": "admin"}},
		{"malformed", `{"email":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleRegister(rec, testutil.JSONRequest(t, "POST", "/api/auth/register", tt.body, nil))
			testutil.AssertStatus(t, rec, http.StatusBadRequest)
		})
	}
}

func TestHandleLogin(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	fx.CreateStudent(ctx, "Lee", "lee@example.com", dept.ID)

	rec := httptest.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login",
		map[string]string{"email": " LEE@example.com", "password": testutil.TestPassword}, nil))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var view login.SessionView
	testutil.DecodeData(t, rec, &view)
	if view.User.DepartmentID != dept.ID.Hex() || view.OnboardingState != "completed" {
		t.Errorf("unexpected session: %+v", view)
	}
	if testutil.SessionCookie(rec, "test-session") == nil {
		t.Error("expected session cookie")
	}

	var u models.User
	if err := fx.DB().Collection("users").FindOne(ctx, bson.M{"email": "lee@example.com"}).Decode(&u); err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.LastLoginAt == nil {
		t.Error("expected last_login_at to be stamped")
	}
}

func TestHandleLogin_UnknownEmail(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login",
		map[string]string{"email": "ghost@example.com", "password": "whatever"}, nil))
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}

func TestHandleLogin_Lockout(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "Park", "park@example.com", models.RoleStudent, nil)

	wrong := map[string]string{"email": "park@example.com", "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", wrong, nil))
		testutil.AssertStatus(t, rec, http.StatusUnauthorized)
	}

	rec := httptest.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login",
		map[string]string{"email": "park@example.com", "password": testutil.TestPassword}, nil))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	if env := testutil.DecodeEnvelope(t, rec); env.Code != "account_locked" {
		t.Errorf("code = %q, want account_locked", env.Code)
	}

	n, err := fx.DB().Collection("audit_events").CountDocuments(ctx, bson.M{"event_type": audit.EventAccountLocked})
	if err != nil || n != 1 {
		t.Errorf("account_locked events = %d, %v", n, err)
	}
}

func TestServeSession(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeSession(rec, testutil.JSONRequest(t, "GET", "/api/auth/session", nil, nil))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var anon login.SessionView
	testutil.DecodeData(t, rec, &anon)
	if anon.Authenticated || anon.User != nil || anon.Guest {
		t.Errorf("anonymous session = %+v", anon)
	}

	req := testutil.JSONRequest(t, "GET", "/api/auth/session", nil, nil)
	req.AddCookie(&http.Cookie{Name: guest.CookieSession, Value: "1"})
	rec = httptest.NewRecorder()
	h.ServeSession(rec, req)
	var g login.SessionView
	testutil.DecodeData(t, rec, &g)
	if !g.Guest {
		t.Error("expected guest flag")
	}

	rec = httptest.NewRecorder()
	h.ServeSession(rec, testutil.JSONRequest(t, "GET", "/api/auth/session", nil, testutil.NewStudentUser()))
	var signedIn login.SessionView
	testutil.DecodeData(t, rec, &signedIn)
	if !signedIn.Authenticated || signedIn.OnboardingState != "not_started" {
		t.Errorf("signed-in session = %+v", signedIn)
	}
}
