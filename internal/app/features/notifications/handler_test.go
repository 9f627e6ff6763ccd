package notifications_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hwankr/courseplanner/internal/app/features/notifications"
	querynotes "github.com/hwankr/courseplanner/internal/app/store/queries/notifications"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*notifications.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := notifications.NewHandler(db, &jsonapi.Reporter{Log: zap.NewNop()}, zap.NewNop())
	return h, testutil.NewFixtures(t, db)
}

func get(t *testing.T, h *notifications.Handler, admin models.User) querynotes.List {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.JSONRequest(t, "GET", "/api/notifications", nil, testutil.SessionFor(admin)))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var list querynotes.List
	testutil.DecodeData(t, rec, &list)
	return list
}

func TestNotifications_AdminFlow(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	student := fx.CreateUser(ctx, "Kim", "kim@example.com", models.RoleStudent, nil)
	first := fx.CreateFeedback(ctx, student, "first")
	fx.CreateFeedback(ctx, student, "second")
	fx.CreatePatchNote(ctx, "1.0.0", "Launch", true)

	if list := get(t, h, admin); list.UnreadCount != 3 {
		t.Fatalf("got unread %d, want 3", list.UnreadCount)
	}

	su := testutil.SessionFor(admin)
	rec := httptest.NewRecorder()
	h.HandleRead(rec, testutil.JSONRequest(t, "POST", "/api/notifications/read",
		map[string]string{"type": querynotes.KindFeedback, "id": first.ID.Hex()}, su))
	testutil.AssertStatus(t, rec, http.StatusOK)
	if list := get(t, h, admin); list.UnreadCount != 2 {
		t.Errorf("got unread %d after mark read, want 2", list.UnreadCount)
	}

	rec = httptest.NewRecorder()
	h.HandleReadAll(rec, testutil.JSONRequest(t, "POST", "/api/notifications/read-all", nil, su))
	testutil.AssertStatus(t, rec, http.StatusOK)
	if list := get(t, h, admin); list.UnreadCount != 0 || len(list.Items) != 0 {
		t.Errorf("expected nothing unread, got %+v", list)
	}
}

func TestHandleRead_Errors(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	kim := fx.CreateUser(ctx, "Kim", "kim@example.com", models.RoleStudent, nil)
	lee := fx.CreateUser(ctx, "Lee", "lee@example.com", models.RoleStudent, nil)
	theirs := fx.CreateFeedback(ctx, lee, "theirs")
	su := testutil.SessionFor(kim)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"unknown type", map[string]string{"type": "email", "id": theirs.ID.Hex()}, http.StatusBadRequest},
		{"bad id", map[string]string{"type": "patch_note", "id": "x"}, http.StatusBadRequest},
		{"someone else's feedback", map[string]string{"type": "feedback_reply", "id": theirs.ID.Hex()}, http.StatusNotFound},
		{"missing note", map[string]string{"type": "patch_note", "id": "507f1f77bcf86cd799439011"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleRead(rec, testutil.JSONRequest(t, "POST", "/api/notifications/read", tt.body, su))
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}
