package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TestJWTSecret signs session tokens in handler tests.
const TestJWTSecret = "test-jwt-secret-must-be-32-chars-long!!"

// NewSessionManager returns a session manager for handler tests.
func NewSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(TestJWTSecret, "test-session", "", 0, 0, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

// SessionCookie returns the session cookie set on rec, or nil.
func SessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// StudentUser returns an onboarded student session in the given department.
func StudentUser(deptID primitive.ObjectID) *auth.SessionUser {
	return &auth.SessionUser{
		ID:                  primitive.NewObjectID().Hex(),
		Name:                "Test Student",
		Email:               "student@test.com",
		Role:                models.RoleStudent,
		DepartmentID:        deptID.Hex(),
		MajorType:           models.MajorSingle,
		OnboardingCompleted: true,
	}
}

// NewStudentUser returns a student session that has not onboarded.
func NewStudentUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "New Student",
		Email: "new@test.com",
		Role:  models.RoleStudent,
	}
}

// AdminUser returns an admin session.
func AdminUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:                  primitive.NewObjectID().Hex(),
		Name:                "Test Admin",
		Email:               "admin@test.com",
		Role:                models.RoleAdmin,
		OnboardingCompleted: true,
	}
}

// SessionFor builds a session user from a stored user.
func SessionFor(u models.User) *auth.SessionUser {
	su := &auth.SessionUser{
		ID:                  u.ID.Hex(),
		Name:                u.Name,
		Email:               u.Email,
		Role:                u.Role,
		MajorType:           u.MajorType,
		OnboardingCompleted: u.OnboardingCompleted,
	}
	if u.DepartmentID != nil {
		su.DepartmentID = u.DepartmentID.Hex()
	}
	if u.SecondaryDepartmentID != nil {
		su.SecondaryDepartmentID = u.SecondaryDepartmentID.Hex()
	}
	return su
}

// JSONRequest builds a request with a JSON body (nil body for none) and the
// user in context (nil for anonymous).
func JSONRequest(t *testing.T, method, target string, body interface{}, user *auth.SessionUser) *http.Request {
	t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, target, nil)
	case string:
		req = httptest.NewRequest(method, target, strings.NewReader(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, target, bytes.NewReader(raw))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = auth.WithTestUser(req, user)
	}
	return req
}

// Envelope is the decoded response envelope with raw data.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

// DecodeEnvelope decodes rec's body, failing the test on bad JSON.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

// DecodeData decodes the envelope's data into dst.
func DecodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) Envelope {
	t.Helper()
	env := DecodeEnvelope(t, rec)
	if len(env.Data) == 0 {
		t.Fatalf("response has no data: %s", rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return env
}

// AssertStatus checks the response status code.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status code: got %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// Serve runs h against req and returns the recorded response.
func Serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}
