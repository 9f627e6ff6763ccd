package requirements_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hwankr/courseplanner/internal/app/features/requirements"
	deptreqstore "github.com/hwankr/courseplanner/internal/app/store/deptreqs"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/progress"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*requirements.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := requirements.NewHandler(db, &jsonapi.Reporter{Log: zap.NewNop()}, zap.NewNop())
	return h, testutil.NewFixtures(t, db)
}

func TestRequirement_GetAndPut(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	su := testutil.SessionFor(u)

	rec := httptest.NewRecorder()
	h.ServeRequirement(rec, testutil.JSONRequest(t, "GET", "/api/graduation-requirements", nil, su))
	testutil.AssertStatus(t, rec, http.StatusOK)
	if env := testutil.DecodeEnvelope(t, rec); len(env.Data) != 0 {
		t.Errorf("expected no data before a requirement is saved, got %s", env.Data)
	}

	body := map[string]interface{}{
		"majorType": "minor", "totalCredits": 130, "primaryMajorCredits": 60, "generalCredits": 30,
		"minorCredits": 21, "minorRequiredMin": 9, "secondaryMajorCredits": 36,
	}
	rec = httptest.NewRecorder()
	h.HandleUpsert(rec, testutil.JSONRequest(t, "PUT", "/api/graduation-requirements", body, su))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var g models.GraduationRequirement
	testutil.DecodeData(t, rec, &g)
	if g.MinorCredits != 21 || g.SecondaryMajorCredits != 0 {
		t.Errorf("unexpected requirement: %+v", g)
	}

	body["totalCredits"] = 100
	rec = httptest.NewRecorder()
	h.HandleUpsert(rec, testutil.JSONRequest(t, "PUT", "/api/graduation-requirements", body, su))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestServeProgress(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	su := testutil.SessionFor(u)

	rec := httptest.NewRecorder()
	h.ServeProgress(rec, testutil.JSONRequest(t, "GET", "/api/graduation-requirements/progress", nil, su))
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	fx.CreateRequirement(ctx, u.ID, 130, 60, 30)
	major := fx.CreateCourse(ctx, "CSE101", "Intro", 3, models.CategoryMajorRequired, &dept.ID)
	general := fx.CreateCourse(ctx, "GEN101", "Writing", 2, models.CategoryGeneralRequired, nil)
	failed := fx.CreateCourse(ctx, "CSE201", "Data Structures", 3, models.CategoryMajorElective, &dept.ID)
	fx.CreatePlan(ctx, u.ID, models.Semester{Year: 2025, Term: models.TermSpring, Courses: []models.PlannedCourse{
		{CourseID: major.ID.Hex(), Status: models.StatusCompleted},
		{CourseID: general.ID.Hex(), Status: models.StatusPlanned},
		{CourseID: failed.ID.Hex(), Status: models.StatusFailed},
		{CourseID: "507f1f77bcf86cd799439011", Status: models.StatusCompleted},
	}})

	rec = httptest.NewRecorder()
	h.ServeProgress(rec, testutil.JSONRequest(t, "GET", "/api/graduation-requirements/progress", nil, su))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var p progress.Progress
	testutil.DecodeData(t, rec, &p)
	if p.Total.Earned != 3 || p.Total.Planned != 2 {
		t.Errorf("total = %+v", p.Total)
	}
	if p.PrimaryMajor.Earned != 3 || p.PrimaryMajor.RequiredMin.Earned != 3 {
		t.Errorf("primary = %+v", p.PrimaryMajor)
	}
	if p.General.Planned != 2 || p.General.Percentage != 0 || p.General.ProjectedPercentage != 7 {
		t.Errorf("general = %+v", p.General)
	}
}

func TestServeDefaults(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")

	store := deptreqstore.New(fx.DB())
	for _, year := range []int{2020, 2024} {
		if _, err := store.Create(ctx, models.DepartmentRequirement{
			College:      "Engineering",
			DepartmentID: dept.ID,
			CatalogYear:  year,
			Single:       models.RequirementTargets{TotalCredits: 130 + year - 2020},
			Double:       models.RequirementTargets{TotalCredits: 140, SecondaryMajorCredits: 36},
		}); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	tests := []struct {
		name      string
		query     string
		user      bool
		wantCode  int
		wantTotal int
	}{
		{"profile department, newest applicable year", "?year=2023", true, http.StatusOK, 130},
		{"explicit department and major type", "?departmentId=" + dept.ID.Hex() + "&majorType=double&year=2025", false, http.StatusOK, 140},
		{"before first catalog year falls back to oldest", "?departmentId=" + dept.ID.Hex() + "&year=2010", false, http.StatusOK, 130},
		{"no department", "", false, http.StatusBadRequest, 0},
		{"unknown department", "?departmentId=507f1f77bcf86cd799439011", false, http.StatusNotFound, 0},
		{"bad major type", "?departmentId=" + dept.ID.Hex() + "&majorType=triple", false, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.JSONRequest(t, "GET", "/api/graduation-requirements/defaults"+tt.query, nil, nil)
			if tt.user {
				req = testutil.JSONRequest(t, "GET", "/api/graduation-requirements/defaults"+tt.query, nil, testutil.StudentUser(dept.ID))
			}
			rec := httptest.NewRecorder()
			h.ServeDefaults(rec, req)
			testutil.AssertStatus(t, rec, tt.wantCode)
			if tt.wantCode != http.StatusOK {
				return
			}
			var v requirements.DefaultsView
			testutil.DecodeData(t, rec, &v)
			if v.Targets.TotalCredits != tt.wantTotal {
				t.Errorf("total = %d, want %d", v.Targets.TotalCredits, tt.wantTotal)
			}
		})
	}
}

func TestRoutes_RequireOnboarding(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	requirements.Routes(h).ServeHTTP(rec, testutil.JSONRequest(t, "GET", "/progress", nil, testutil.NewStudentUser()))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
}
