package userstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/indexes"
	"github.com/hwankr/courseplanner/internal/app/system/paging"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Name:  "  José Kim ",
		Email: "Jose@Example.COM",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "jose@example.com" {
		t.Errorf("Email = %q, want lowercased", created.Email)
	}
	if created.Name != "José Kim" {
		t.Errorf("Name = %q, want trimmed", created.Name)
	}
	if created.NameCI != text.Fold("José Kim") {
		t.Errorf("NameCI = %q, want %q", created.NameCI, text.Fold("José Kim"))
	}
	if created.Role != models.RoleStudent {
		t.Errorf("Role = %q, want student default", created.Role)
	}
	if created.AuthMethod != models.AuthPassword {
		t.Errorf("AuthMethod = %q, want password default", created.AuthMethod)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Name: "X", Email: "x@example.com", Role: "superuser"}); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, models.User{Name: "First", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{Name: "Second", Email: "DUP@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByEmailAndID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateAdmin(ctx, "Admin", "admin@example.com")

	got, err := store.GetByEmail(ctx, " ADMIN@example.com ")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetByEmail returned %v, want %v", got.ID, u.ID)
	}

	got, err = store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Email != "admin@example.com" {
		t.Errorf("Email = %q", got.Email)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_GoogleLink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Lee", "lee@example.com", models.RoleStudent, nil)
	if err := store.LinkGoogle(ctx, u.ID, "g-123"); err != nil {
		t.Fatalf("LinkGoogle failed: %v", err)
	}
	got, err := store.GetByGoogleID(ctx, "g-123")
	if err != nil {
		t.Fatalf("GetByGoogleID failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetByGoogleID returned wrong user")
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fixtures.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	second := fixtures.CreateDepartment(ctx, "MTH", "Mathematics", "Science")
	u := fixtures.CreateStudent(ctx, "Park", "park@example.com", dept.ID)

	name := "Park Jiwoo"
	major := models.MajorDouble
	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{
		Name:                  &name,
		SecondaryDepartmentID: &second.ID,
		MajorType:             &major,
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if got.Name != name || got.NameCI != text.Fold(name) {
		t.Errorf("name not updated: %q / %q", got.Name, got.NameCI)
	}
	if got.SecondaryDepartmentID == nil || *got.SecondaryDepartmentID != second.ID {
		t.Error("expected secondary department to be set")
	}
	if got.MajorType != models.MajorDouble {
		t.Errorf("MajorType = %q", got.MajorType)
	}

	got, err = store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{ClearSecondary: true})
	if err != nil {
		t.Fatalf("UpdateProfile (clear) failed: %v", err)
	}
	if got.SecondaryDepartmentID != nil {
		t.Error("expected secondary department to be cleared")
	}
}

func TestStore_CompleteOnboarding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fixtures.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fixtures.CreateUser(ctx, "New", "new@example.com", models.RoleStudent, nil)

	ob := userstore.Onboarding{DepartmentID: dept.ID, MajorType: models.MajorSingle, EnrollmentYear: 2024}
	if err := store.CompleteOnboarding(ctx, u.ID, ob); err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if !got.OnboardingCompleted || got.DepartmentID == nil || *got.DepartmentID != dept.ID {
		t.Errorf("onboarding not recorded: %+v", got)
	}

	if err := store.CompleteOnboarding(ctx, u.ID, ob); err != mongo.ErrNoDocuments {
		t.Errorf("second CompleteOnboarding = %v, want ErrNoDocuments", err)
	}
}

func TestStore_SetRole_LastAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateAdmin(ctx, "Only Admin", "only@example.com")

	if _, err := store.SetRole(ctx, admin.ID, models.RoleStudent); !errors.Is(err, userstore.ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}

	other := fixtures.CreateUser(ctx, "Second", "second@example.com", models.RoleStudent, nil)
	if _, err := store.SetRole(ctx, other.ID, models.RoleAdmin); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	got, err := store.SetRole(ctx, admin.ID, models.RoleStudent)
	if err != nil {
		t.Fatalf("demote with two admins failed: %v", err)
	}
	if got.Role != models.RoleStudent {
		t.Errorf("Role = %q, want student", got.Role)
	}
	if n, _ := store.CountAdmins(ctx); n != 1 {
		t.Errorf("CountAdmins = %d, want 1", n)
	}
}

func TestStore_LoginFailureLockout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Locky", "locky@example.com", models.RoleStudent, nil)
	now := time.Now()

	for i := 1; i <= 2; i++ {
		locked, err := store.RecordLoginFailure(ctx, u.ID, 3, 15*time.Minute, now)
		if err != nil {
			t.Fatalf("RecordLoginFailure %d: %v", i, err)
		}
		if locked {
			t.Fatalf("locked after %d failures", i)
		}
	}
	locked, err := store.RecordLoginFailure(ctx, u.ID, 3, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("RecordLoginFailure: %v", err)
	}
	if !locked {
		t.Fatal("expected third failure to lock the account")
	}

	got, _ := store.GetByID(ctx, u.ID)
	if !got.IsLocked(now) {
		t.Error("expected account to be locked")
	}
	if got.IsLocked(now.Add(16 * time.Minute)) {
		t.Error("expected lock to expire")
	}
	if got.FailedLoginAttempts != 0 {
		t.Errorf("FailedLoginAttempts = %d, want reset to 0", got.FailedLoginAttempts)
	}

	if err := store.RecordLoginSuccess(ctx, u.ID, now); err != nil {
		t.Fatalf("RecordLoginSuccess: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.LockedUntil != nil || got.LastLoginAt == nil {
		t.Errorf("expected lock cleared and last login stamped: %+v", got)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateAdmin(ctx, "Alpha", "alpha@example.com")
	fixtures.CreateUser(ctx, "Bravo", "bravo@example.com", models.RoleStudent, nil)
	fixtures.CreateUser(ctx, "Brenda", "brenda@example.com", models.RoleStudent, nil)

	page, err := store.List(ctx, userstore.ListFilter{}, paging.NewKeyset("", ""))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Items) != 3 || page.Items[0].Name != "Alpha" {
		t.Fatalf("unexpected page: %+v", page.Items)
	}
	if page.HasNext || page.HasPrev {
		t.Error("expected a single page")
	}

	page, err = store.List(ctx, userstore.ListFilter{Role: models.RoleStudent, Search: "br"}, paging.NewKeyset("", ""))
	if err != nil {
		t.Fatalf("List (filtered) failed: %v", err)
	}
	if len(page.Items) != 2 {
		t.Errorf("expected 2 students matching 'br', got %d", len(page.Items))
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Gone", "gone@example.com", models.RoleStudent, nil)
	if err := store.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, u.ID); err != mongo.ErrNoDocuments {
		t.Errorf("second Delete = %v, want ErrNoDocuments", err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fixtures.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fixtures.CreateStudent(ctx, "Fetch", "fetch@example.com", dept.ID)

	f := userstore.NewFetcher(db)
	su := f.FetchUser(ctx, u.ID.Hex())
	if su == nil {
		t.Fatal("expected session user")
	}
	if su.DepartmentID != dept.ID.Hex() || !su.OnboardingCompleted || su.Role != models.RoleStudent {
		t.Errorf("unexpected session user: %+v", su)
	}
	if f.FetchUser(ctx, "not-an-id") != nil {
		t.Error("expected nil for malformed id")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("expected nil for missing user")
	}
}
