package plans_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hwankr/courseplanner/internal/app/features/plans"
	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/guest"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.uber.org/zap"
)

type planView struct {
	ID        string `json:"id"`
	Semesters []struct {
		Year    int    `json:"year"`
		Term    string `json:"term"`
		Courses []struct {
			CourseID string `json:"courseId"`
			Status   string `json:"status"`
			Grade    string `json:"grade"`
			Course   *struct {
				Code string `json:"code"`
			} `json:"course"`
		} `json:"courses"`
	} `json:"semesters"`
}

type addResult struct {
	Plan  planView `json:"plan"`
	Added bool     `json:"added"`
}

// call routes a request through router and returns the recorder.
func call(t *testing.T, router http.Handler, method, target string, body interface{}, user *auth.SessionUser) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.JSONRequest(t, method, target, body, user))
	return rec
}

func TestMemberPlan_Flow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	course := fx.CreateCourse(ctx, "CSE101", "Intro to CS", 3, models.CategoryMajorRequired, &dept.ID)
	other := fx.CreateUser(ctx, "Lee", "lee@example.com", models.RoleStudent, &dept.ID)
	foreign := fx.CreateCustomCourse(ctx, other.ID, "LEE1", "Lee's Course", 3, models.CategoryFreeElective)
	su := testutil.SessionFor(u)

	router := plans.Routes(plans.NewHandler(db, &jsonapi.Reporter{Log: zap.NewNop()}, zap.NewNop()))

	rec := call(t, router, "GET", "/", nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var p planView
	testutil.DecodeData(t, rec, &p)
	if p.ID == "" || len(p.Semesters) != 0 {
		t.Fatalf("unexpected new plan: %+v", p)
	}
	base := "/" + p.ID

	testutil.AssertStatus(t, call(t, router, "POST", base+"/semesters", map[string]interface{}{"year": 2025, "term": "fall"}, su), http.StatusOK)
	testutil.AssertStatus(t, call(t, router, "POST", base+"/semesters", map[string]interface{}{"year": 2025, "term": "spring"}, su), http.StatusOK)

	add := map[string]interface{}{"year": 2025, "term": "spring", "courseId": course.ID.Hex()}
	rec = call(t, router, "POST", base+"/courses", add, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var res addResult
	testutil.DecodeData(t, rec, &res)
	if !res.Added || len(res.Plan.Semesters) != 2 || res.Plan.Semesters[0].Term != "spring" {
		t.Fatalf("unexpected add result: %+v", res)
	}
	if c := res.Plan.Semesters[0].Courses; len(c) != 1 || c[0].Course == nil || c[0].Course.Code != "CSE101" || c[0].Status != "planned" {
		t.Errorf("course not hydrated: %+v", c)
	}

	// Adding again anywhere is a reported no-op.
	add["term"] = "fall"
	rec = call(t, router, "POST", base+"/courses", add, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	env := testutil.DecodeData(t, rec, &res)
	if res.Added || env.Message != "course already in plan" {
		t.Errorf("duplicate add: added=%v message=%q", res.Added, env.Message)
	}

	// Another student's custom course is not in this user's catalog.
	rec = call(t, router, "POST", base+"/courses", map[string]interface{}{"year": 2025, "term": "fall", "courseId": foreign.ID.Hex()}, su)
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	rec = call(t, router, "PATCH", base+"/courses/move", map[string]interface{}{
		"fromYear": 2025, "fromTerm": "spring", "toYear": 2025, "toTerm": "fall", "courseId": course.ID.Hex(),
	}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.DecodeData(t, rec, &p)
	if len(p.Semesters[0].Courses) != 0 || len(p.Semesters[1].Courses) != 1 {
		t.Errorf("move did not happen: %+v", p)
	}

	rec = call(t, router, "PATCH", base+"/courses/status", map[string]interface{}{
		"year": 2025, "term": "fall", "courseId": course.ID.Hex(), "status": "completed", "grade": "A+",
	}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.DecodeData(t, rec, &p)
	if c := p.Semesters[1].Courses[0]; c.Status != "completed" || c.Grade != "A+" {
		t.Errorf("status not updated: %+v", c)
	}

	rec = call(t, router, "PATCH", base+"/courses/status", map[string]interface{}{
		"year": 2025, "term": "spring", "courseId": course.ID.Hex(), "status": "failed",
	}, su)
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	rec = call(t, router, "DELETE", base+"/courses", map[string]interface{}{"year": 2025, "term": "fall", "courseId": course.ID.Hex()}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	rec = call(t, router, "DELETE", base+"/semesters", map[string]interface{}{"year": 2025, "term": "spring"}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.DecodeData(t, rec, &p)
	if len(p.Semesters) != 1 || len(p.Semesters[0].Courses) != 0 {
		t.Errorf("unexpected plan after removals: %+v", p)
	}

	rec = call(t, router, "POST", base+"/reset", nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.DecodeData(t, rec, &p)
	if len(p.Semesters) != 0 {
		t.Errorf("reset left %d semesters", len(p.Semesters))
	}
}

func TestMemberPlan_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	u := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	course := fx.CreateCourse(ctx, "CSE101", "Intro to CS", 3, models.CategoryMajorRequired, &dept.ID)
	plan := fx.CreatePlan(ctx, u.ID)
	su := testutil.SessionFor(u)
	base := "/" + plan.ID.Hex()

	router := plans.Routes(plans.NewHandler(db, &jsonapi.Reporter{Log: zap.NewNop()}, zap.NewNop()))

	tests := []struct {
		name   string
		method string
		target string
		body   interface{}
		want   int
	}{
		{"someone else's plan", "POST", "/507f1f77bcf86cd799439011/semesters", map[string]interface{}{"year": 2025, "term": "fall"}, http.StatusNotFound},
		{"bad plan id", "POST", "/nope/semesters", map[string]interface{}{"year": 2025, "term": "fall"}, http.StatusBadRequest},
		{"bad term", "POST", base + "/semesters", map[string]interface{}{"year": 2025, "term": "autumn"}, http.StatusBadRequest},
		{"missing semester", "POST", base + "/courses", map[string]interface{}{"year": 2025, "term": "fall", "courseId": course.ID.Hex()}, http.StatusNotFound},
		{"unknown course", "POST", base + "/courses", map[string]interface{}{"year": 2025, "term": "fall", "courseId": "507f1f77bcf86cd799439011"}, http.StatusNotFound},
		{"bad grade", "PATCH", base + "/courses/status", map[string]interface{}{"year": 2025, "term": "fall", "courseId": "x", "status": "completed", "grade": "Z"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertStatus(t, call(t, router, tt.method, tt.target, tt.body, su), tt.want)
		})
	}

	rec := call(t, router, "GET", "/", nil, nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}

// carry copies the cookies rec set onto req.
func carry(rec *httptest.ResponseRecorder, req *http.Request) *http.Request {
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestGuestPlan_Flow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	course := fx.CreateCourse(ctx, "CSE101", "Intro to CS", 3, models.CategoryMajorRequired, &dept.ID)
	custom := fx.CreateCustomCourse(ctx, dept.ID, "CUST1", "Someone's Custom", 3, models.CategoryFreeElective)

	guests := guest.New(nil, false)
	router := plans.GuestRoutes(plans.NewGuestHandler(db, guests, &jsonapi.Reporter{Log: zap.NewNop()}, zap.NewNop()))

	rec := call(t, router, "POST", "/semesters", map[string]interface{}{"year": 2025, "term": "spring"}, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	req := carry(rec, testutil.JSONRequest(t, "POST", "/courses", map[string]interface{}{"year": 2025, "term": "spring", "courseId": course.ID.Hex()}, nil))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	testutil.AssertStatus(t, rec2, http.StatusOK)
	var res addResult
	testutil.DecodeData(t, rec2, &res)
	if !res.Added || len(res.Plan.Semesters) != 1 || res.Plan.Semesters[0].Courses[0].Course == nil {
		t.Fatalf("unexpected guest add: %+v", res)
	}

	// Custom courses from the database are never visible to guests.
	req = carry(rec2, testutil.JSONRequest(t, "POST", "/courses", map[string]interface{}{"year": 2025, "term": "spring", "courseId": custom.ID.Hex()}, nil))
	rec3 := httptest.NewRecorder()
	router.ServeHTTP(rec3, req)
	testutil.AssertStatus(t, rec3, http.StatusNotFound)

	req = carry(rec2, testutil.JSONRequest(t, "GET", "/", nil, nil))
	rec4 := httptest.NewRecorder()
	router.ServeHTTP(rec4, req)
	testutil.AssertStatus(t, rec4, http.StatusOK)
	var p planView
	testutil.DecodeData(t, rec4, &p)
	if p.ID != "" || len(p.Semesters) != 1 || p.Semesters[0].Courses[0].CourseID != course.ID.Hex() {
		t.Errorf("guest plan not persisted: %+v", p)
	}
}

func TestGuestCatalog_IncludesGuestCourses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	own := []guest.GuestCourse{{ID: "guest-1", Code: "G1", Name: "Guest Course", Credits: 2, Category: models.CategoryFreeElective}}
	cat, err := plans.GuestCatalog(coursestore.New(db), own)(ctx, []string{"guest-1"})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if c, ok := cat["guest-1"]; !ok || c.Credits != 2 {
		t.Errorf("guest course missing: %+v", cat)
	}
}
