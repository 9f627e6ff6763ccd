package audit_test

import (
	"testing"
	"time"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndGetByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		Success:   true,
		Details:   map[string]string{"auth_method": "password"},
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if ev.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if ev.Details["auth_method"] != "password" {
		t.Errorf("details: got %v", ev.Details)
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true, CreatedAt: base},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, CreatedAt: base.Add(time.Minute)},
		{Category: audit.CategoryAdmin, EventType: audit.EventCourseCreated, Success: true, CreatedAt: base.Add(2 * time.Minute)},
		{Category: audit.CategoryAdmin, EventType: audit.EventRoleChanged, Success: true, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"all", audit.QueryFilter{}, 4},
		{"by category", audit.QueryFilter{Category: audit.CategoryAdmin}, 2},
		{"by event type", audit.QueryFilter{EventType: audit.EventLoginSuccess}, 1},
		{"limit", audit.QueryFilter{Limit: 3}, 3},
		{"offset", audit.QueryFilter{Offset: 3}, 1},
	}
	start := base.Add(90 * time.Second)
	tests = append(tests, struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{"since", audit.QueryFilter{StartTime: &start}, 2})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}

	all, _ := store.Query(ctx, audit.QueryFilter{})
	if all[0].EventType != audit.EventRoleChanged {
		t.Errorf("expected newest first, got %s", all[0].EventType)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryAuth})
	if err != nil || n != 2 {
		t.Errorf("CountByFilter = %d, %v; want 2", n, err)
	}

	failed, err := store.CountFailedLogins(ctx, base.Add(-time.Minute))
	if err != nil || failed != 1 {
		t.Errorf("CountFailedLogins = %d, %v; want 1", failed, err)
	}
}
