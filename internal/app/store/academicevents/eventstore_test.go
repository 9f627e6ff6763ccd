package eventstore_test

import (
	"testing"
	"time"

	eventstore "github.com/hwankr/courseplanner/internal/app/store/academicevents"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_ListRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := eventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	events := []models.AcademicEvent{
		{Title: "Registration", StartDate: day(2025, 2, 20), EndDate: day(2025, 3, 3), Category: models.EventRegistration},
		{Title: "Midterms", StartDate: day(2025, 4, 21), EndDate: day(2025, 4, 25), Category: models.EventExam},
		{Title: "Spring start", StartDate: day(2025, 3, 4), EndDate: day(2025, 3, 4), Category: models.EventAcademic},
	}
	for _, e := range events {
		if _, err := store.Create(ctx, e); err != nil {
			t.Fatalf("Create %s: %v", e.Title, err)
		}
	}

	march, err := store.ListRange(ctx, day(2025, 3, 1), day(2025, 4, 1))
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(march) != 2 || march[0].Title != "Registration" || march[1].Title != "Spring start" {
		t.Errorf("unexpected March events: %+v", march)
	}

	all, _ := store.ListRange(ctx, time.Time{}, time.Time{})
	if len(all) != 3 {
		t.Errorf("open range = %d events, want 3", len(all))
	}
}

func TestStore_UpdateDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := eventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e, err := store.Create(ctx, models.AcademicEvent{Title: "Finals", StartDate: day(2025, 6, 16), EndDate: day(2025, 6, 20), Category: models.EventExam})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	e.Title = "Final exams"
	e.EndDate = day(2025, 6, 21)
	got, err := store.Update(ctx, e.ID, e)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Title != "Final exams" || !got.EndDate.Equal(day(2025, 6, 21)) {
		t.Errorf("unexpected update: %+v", got)
	}
	if n, err := store.Delete(ctx, e.ID); err != nil || n != 1 {
		t.Errorf("Delete = %d, %v", n, err)
	}
}
