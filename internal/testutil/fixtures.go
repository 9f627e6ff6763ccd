package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the password of every fixture user.
const TestPassword = "correct-horse-battery"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc interface{}) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateDepartment creates an active department.
func (f *Fixtures) CreateDepartment(ctx context.Context, code, name, college string) models.Department {
	f.t.Helper()
	now := time.Now().UTC()
	d := models.Department{
		ID:        primitive.NewObjectID(),
		Code:      code,
		Name:      name,
		NameCI:    text.Fold(name),
		College:   college,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "departments", d)
	return d
}

// CreateCourse creates an official course. deptID nil makes a common course.
func (f *Fixtures) CreateCourse(ctx context.Context, code, name string, credits int, category string, deptID *primitive.ObjectID) models.Course {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Course{
		ID:           primitive.NewObjectID(),
		Code:         code,
		Name:         name,
		NameCI:       text.Fold(name),
		Credits:      credits,
		DepartmentID: deptID,
		Category:     category,
		Semesters:    []string{models.TermSpring, models.TermFall},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "courses", c)
	return c
}

// CreateCustomCourse creates a course owned by a student.
func (f *Fixtures) CreateCustomCourse(ctx context.Context, owner primitive.ObjectID, code, name string, credits int, category string) models.Course {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Course{
		ID:        primitive.NewObjectID(),
		Code:      code,
		Name:      name,
		NameCI:    text.Fold(name),
		Credits:   credits,
		Category:  category,
		Active:    true,
		CreatedBy: &owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "courses", c)
	return c
}

// CreateUser creates a password user with TestPassword. deptID nil leaves
// the user before onboarding.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string, deptID *primitive.ObjectID) models.User {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: string(hash),
		AuthMethod:   models.AuthPassword,
		Name:         name,
		NameCI:       text.Fold(name),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if deptID != nil {
		u.DepartmentID = deptID
		u.MajorType = models.MajorSingle
		u.EnrollmentYear = now.Year() - 1
		u.OnboardingCompleted = true
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateStudent creates an onboarded student in deptID.
func (f *Fixtures) CreateStudent(ctx context.Context, name, email string, deptID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleStudent, &deptID)
}

// CreateAdmin creates an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin, nil)
}

// CreateRequirement stores a single-major requirement for userID.
func (f *Fixtures) CreateRequirement(ctx context.Context, userID primitive.ObjectID, total, major, general int) models.GraduationRequirement {
	f.t.Helper()
	now := time.Now().UTC()
	g := models.GraduationRequirement{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		MajorType: models.MajorSingle,
		RequirementTargets: models.RequirementTargets{
			TotalCredits:        total,
			PrimaryMajorCredits: major,
			GeneralCredits:      general,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "graduation_requirements", g)
	return g
}

// CreatePlan stores a plan for userID with the given semesters.
func (f *Fixtures) CreatePlan(ctx context.Context, userID primitive.ObjectID, semesters ...models.Semester) models.Plan {
	f.t.Helper()
	now := time.Now().UTC()
	if semesters == nil {
		semesters = []models.Semester{}
	}
	p := models.Plan{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Semesters: semesters,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "plans", p)
	return p
}

// CreateFeedback stores a pending feedback item from user.
func (f *Fixtures) CreateFeedback(ctx context.Context, user models.User, content string) models.Feedback {
	f.t.Helper()
	now := time.Now().UTC()
	fb := models.Feedback{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		UserEmail: user.Email,
		Category:  models.FeedbackBug,
		Content:   content,
		Status:    models.FeedbackPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "feedback", fb)
	return fb
}

// CreatePatchNote stores a patch note, published or draft.
func (f *Fixtures) CreatePatchNote(ctx context.Context, version, title string, published bool) models.PatchNote {
	f.t.Helper()
	now := time.Now().UTC()
	n := models.PatchNote{
		ID:        primitive.NewObjectID(),
		Version:   version,
		Title:     title,
		Content:   "<p>" + title + "</p>",
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if published {
		n.PublishedAt = &now
	}
	f.insert(ctx, "patch_notes", n)
	return n
}
