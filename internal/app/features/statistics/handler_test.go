package statistics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	featstats "github.com/hwankr/courseplanner/internal/app/features/statistics"
	"github.com/hwankr/courseplanner/internal/app/store/queries/statistics"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/ttlcache"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*featstats.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := statistics.New(db, ttlcache.New(time.Minute))
	h := featstats.NewHandler(db, svc, &jsonapi.Reporter{Log: zap.NewNop()}, zap.NewNop())
	return h, testutil.NewFixtures(t, db)
}

func TestServeDepartment(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	c1 := fx.CreateCourse(ctx, "CSE101", "Intro", 3, models.CategoryMajorRequired, &dept.ID)
	c2 := fx.CreateCourse(ctx, "CSE201", "Data Structures", 3, models.CategoryMajorRequired, &dept.ID)

	a := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	b := fx.CreateStudent(ctx, "Lee", "lee@example.com", dept.ID)
	fx.CreatePlan(ctx, a.ID, models.Semester{Year: 2025, Term: models.TermSpring, Courses: []models.PlannedCourse{
		{CourseID: c1.ID.Hex(), Status: models.StatusCompleted},
		{CourseID: c2.ID.Hex(), Status: models.StatusPlanned},
	}})
	fx.CreatePlan(ctx, b.ID, models.Semester{Year: 2025, Term: models.TermFall, Courses: []models.PlannedCourse{
		{CourseID: c1.ID.Hex(), Status: models.StatusEnrolled},
	}})

	rec := httptest.NewRecorder()
	h.ServeDepartment(rec, testutil.JSONRequest(t, "GET", "/api/statistics/department", nil, testutil.SessionFor(a)))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var st statistics.DepartmentStats
	testutil.DecodeData(t, rec, &st)
	if st.StudentCount != 2 || st.PlanCount != 2 {
		t.Fatalf("counts: got students=%d plans=%d", st.StudentCount, st.PlanCount)
	}
	if len(st.TopCourses) != 2 || st.TopCourses[0].Code != "CSE101" || st.TopCourses[0].Count != 2 {
		t.Errorf("unexpected ranking: %+v", st.TopCourses)
	}
}

func TestServeDepartment_Errors(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeDepartment(rec, testutil.JSONRequest(t, "GET", "/api/statistics/department", nil, testutil.AdminUser()))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = httptest.NewRecorder()
	h.ServeDepartment(rec, testutil.JSONRequest(t, "GET", "/api/statistics/department?departmentId=507f1f77bcf86cd799439011", nil, testutil.AdminUser()))
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestServeCourse(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	c := fx.CreateCourse(ctx, "CSE101", "Intro", 3, models.CategoryMajorRequired, &dept.ID)
	u := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	other := fx.CreateStudent(ctx, "Lee", "lee@example.com", dept.ID)
	custom := fx.CreateCustomCourse(ctx, other.ID, "EXT1", "Transfer", 3, models.CategoryFreeElective)
	fx.CreatePlan(ctx, u.ID, models.Semester{Year: 2025, Term: models.TermFall, Courses: []models.PlannedCourse{
		{CourseID: c.ID.Hex(), Status: models.StatusPlanned},
	}})

	su := testutil.SessionFor(u)
	rec := httptest.NewRecorder()
	req := testutil.JSONRequest(t, "GET", "/api/statistics/courses/"+c.ID.Hex(), nil, su)
	h.ServeCourse(rec, testutil.WithChiURLParam(req, "id", c.ID.Hex()))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var st statistics.CourseStats
	testutil.DecodeData(t, rec, &st)
	if st.PlanCount != 1 || st.ByStatus[models.StatusPlanned] != 1 || st.ByTerm[models.TermFall] != 1 {
		t.Errorf("unexpected course stats: %+v", st)
	}

	rec = httptest.NewRecorder()
	req = testutil.JSONRequest(t, "GET", "/api/statistics/courses/"+custom.ID.Hex(), nil, su)
	h.ServeCourse(rec, testutil.WithChiURLParam(req, "id", custom.ID.Hex()))
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestRoutes_RequireOnboarding(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	featstats.Routes(h).ServeHTTP(rec, testutil.JSONRequest(t, "GET", "/department", nil, testutil.NewStudentUser()))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
}
