package planstore_test

import (
	"errors"
	"testing"

	planstore "github.com/hwankr/courseplanner/internal/app/store/plans"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/planner"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_FindOrCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := planstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	if _, err := store.GetByUser(ctx, userID); err != mongo.ErrNoDocuments {
		t.Fatalf("expected ErrNoDocuments before first use, got %v", err)
	}

	first, err := store.FindOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if first.ID.IsZero() || first.UserID != userID || len(first.Semesters) != 0 {
		t.Errorf("unexpected new plan: %+v", first)
	}

	second, err := store.FindOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("second FindOrCreate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected the same plan on second call")
	}
}

func TestAdapter_ApplyPersists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := planstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	adapter := &planstore.Adapter{Store: store, UserID: primitive.NewObjectID()}

	_, changed, err := planner.Apply(ctx, adapter, func(p *models.Plan) (bool, error) {
		return planner.AddSemester(p, 2025, models.TermFall), nil
	})
	if err != nil || !changed {
		t.Fatalf("AddSemester apply = %v, %v", changed, err)
	}
	p, changed, err := planner.Apply(ctx, adapter, func(p *models.Plan) (bool, error) {
		res, err := planner.AddCourse(p, 2025, models.TermFall, "c1", models.StatusPlanned)
		return res == planner.Added, err
	})
	if err != nil || !changed {
		t.Fatalf("AddCourse apply = %v, %v", changed, err)
	}

	stored, err := store.GetByUser(ctx, adapter.UserID)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if stored.ID != p.ID || len(stored.Semesters) != 1 || len(stored.Semesters[0].Courses) != 1 {
		t.Fatalf("unexpected stored plan: %+v", stored)
	}

	if n, err := store.RemoveCourseEverywhere(ctx, "c1"); err != nil || n != 1 {
		t.Errorf("RemoveCourseEverywhere = %d, %v", n, err)
	}
	stored, _ = store.GetByUser(ctx, adapter.UserID)
	if len(stored.Semesters[0].Courses) != 0 {
		t.Error("expected course to be pulled from the plan")
	}
}

func TestAdapter_WrongPlanID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := planstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	other := primitive.NewObjectID()
	adapter := &planstore.Adapter{Store: store, UserID: primitive.NewObjectID(), PlanID: &other}
	if _, err := adapter.Load(ctx); !errors.Is(err, planstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := planstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	fixtures.CreatePlan(ctx, userID)
	if n, err := store.DeleteByUser(ctx, userID); err != nil || n != 1 {
		t.Errorf("DeleteByUser = %d, %v", n, err)
	}
}
