package accounts_test

import (
	"errors"
	"testing"

	"github.com/hwankr/courseplanner/internal/app/store/accounts"
	gradreqstore "github.com/hwankr/courseplanner/internal/app/store/gradreqs"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestCompleteOnboarding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fixtures.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fixtures.CreateUser(ctx, "New", "new@example.com", models.RoleStudent, nil)

	svc := accounts.New(testutil.TestClient(t), db, zap.NewNop())
	ob := userstore.Onboarding{DepartmentID: dept.ID, MajorType: models.MajorSingle, EnrollmentYear: 2024}
	req := models.GraduationRequirement{
		MajorType:          models.MajorSingle,
		RequirementTargets: models.RequirementTargets{TotalCredits: 130, PrimaryMajorCredits: 60, GeneralCredits: 30},
	}

	got, err := svc.CompleteOnboarding(ctx, u.ID, ob, req)
	if err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}
	if !got.OnboardingCompleted || got.DepartmentID == nil || *got.DepartmentID != dept.ID {
		t.Errorf("unexpected user: %+v", got)
	}

	stored, err := gradreqstore.New(db).GetByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("requirement not stored: %v", err)
	}
	if stored.TotalCredits != 130 {
		t.Errorf("TotalCredits = %d", stored.TotalCredits)
	}

	if _, err := svc.CompleteOnboarding(ctx, u.ID, ob, req); !errors.Is(err, accounts.ErrAlreadyOnboarded) {
		t.Errorf("expected ErrAlreadyOnboarded, got %v", err)
	}
}

func TestDeleteAccount_Cascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fixtures.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fixtures.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	keep := fixtures.CreateStudent(ctx, "Lee", "lee@example.com", dept.ID)

	for _, owner := range []models.User{u, keep} {
		fixtures.CreatePlan(ctx, owner.ID)
		fixtures.CreateRequirement(ctx, owner.ID, 130, 60, 30)
		fixtures.CreateFeedback(ctx, owner, "hi")
		fixtures.CreateCustomCourse(ctx, owner.ID, "MY1", "Mine", 3, models.CategoryFreeElective)
	}
	note := fixtures.CreatePatchNote(ctx, "1.0.0", "Launch", true)
	if _, err := db.Collection("patch_note_reads").InsertOne(ctx, bson.M{"user_id": u.ID, "patch_note_id": note.ID}); err != nil {
		t.Fatalf("insert receipt: %v", err)
	}

	svc := accounts.New(nil, db, zap.NewNop())
	if err := svc.DeleteAccount(ctx, u.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	for _, coll := range []string{"plans", "graduation_requirements", "feedback", "patch_note_reads"} {
		n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"user_id": u.ID})
		if err != nil || n != 0 {
			t.Errorf("%s still has %d rows for deleted user (%v)", coll, n, err)
		}
	}
	if n, _ := db.Collection("courses").CountDocuments(ctx, bson.M{"created_by": u.ID}); n != 0 {
		t.Errorf("custom courses not removed: %d", n)
	}
	if n, _ := db.Collection("users").CountDocuments(ctx, bson.M{"_id": u.ID}); n != 0 {
		t.Error("user not removed")
	}
	if n, _ := db.Collection("plans").CountDocuments(ctx, bson.M{"user_id": keep.ID}); n != 1 {
		t.Error("other user's plan was removed")
	}
}

func TestRemoveUser_Rules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateAdmin(ctx, "Admin", "admin@example.com")
	student := fixtures.CreateUser(ctx, "Kim", "kim@example.com", models.RoleStudent, nil)
	svc := accounts.New(nil, db, zap.NewNop())

	if _, err := svc.RemoveUser(ctx, admin.ID, admin.ID); !errors.Is(err, accounts.ErrSelfDelete) {
		t.Errorf("self delete: got %v, want ErrSelfDelete", err)
	}
	if _, err := svc.RemoveUser(ctx, student.ID, admin.ID); !errors.Is(err, userstore.ErrLastAdmin) {
		t.Errorf("last admin: got %v, want ErrLastAdmin", err)
	}

	removed, err := svc.RemoveUser(ctx, admin.ID, student.ID)
	if err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}
	if removed.Email != student.Email {
		t.Errorf("removed %q, want %q", removed.Email, student.Email)
	}
	if n, _ := db.Collection("users").CountDocuments(ctx, bson.M{"_id": student.ID}); n != 0 {
		t.Error("user not removed")
	}
}
