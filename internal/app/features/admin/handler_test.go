package admin_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hwankr/courseplanner/internal/app/features/admin"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/store/queries/statistics"
	"github.com/hwankr/courseplanner/internal/app/system/auditlog"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/ttlcache"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*admin.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Auth: auditlog.DB, Admin: auditlog.DB})
	stats := statistics.New(db, ttlcache.New(time.Minute))
	h := admin.NewHandler(testutil.TestClient(t), db, stats, al, &jsonapi.Reporter{Log: logger}, logger)
	return h, testutil.NewFixtures(t, db)
}

func call(t *testing.T, fn http.HandlerFunc, method, target, id string, body interface{}, su *auth.SessionUser) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.JSONRequest(t, method, target, body, su)
	if id != "" {
		req = testutil.WithChiURLParam(req, "id", id)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestSetRole_LastAdmin(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateAdmin(ctx, "Root", "root@example.com")
	student := fx.CreateUser(ctx, "Kim", "kim@example.com", models.RoleStudent, nil)
	su := testutil.SessionFor(root)

	rec := call(t, h.HandleSetRole, "PATCH", "/api/admin/users/"+root.ID.Hex()+"/role", root.ID.Hex(),
		map[string]string{"role": "student"}, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	if env := testutil.DecodeEnvelope(t, rec); env.Code != "last_admin" {
		t.Errorf("code = %q, want last_admin", env.Code)
	}

	rec = call(t, h.HandleSetRole, "PATCH", "/api/admin/users/"+student.ID.Hex()+"/role", student.ID.Hex(),
		map[string]string{"role": "admin"}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var got models.User
	testutil.DecodeData(t, rec, &got)
	if got.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}

	// With two admins the first may step down.
	rec = call(t, h.HandleSetRole, "PATCH", "/api/admin/users/"+root.ID.Hex()+"/role", root.ID.Hex(),
		map[string]string{"role": "student"}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)

	rec = call(t, h.HandleSetRole, "PATCH", "/api/admin/users/x/role", "x",
		map[string]string{"role": "admin"}, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = call(t, h.HandleSetRole, "PATCH", "/api/admin/users/"+student.ID.Hex()+"/role", student.ID.Hex(),
		map[string]string{"role": "owner"}, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestDeleteUser(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	root := fx.CreateAdmin(ctx, "Root", "root@example.com")
	student := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	fx.CreatePlan(ctx, student.ID)
	su := testutil.SessionFor(root)

	rec := call(t, h.HandleDeleteUser, "DELETE", "/api/admin/users/"+root.ID.Hex(), root.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	if env := testutil.DecodeEnvelope(t, rec); env.Code != "self_delete" {
		t.Errorf("code = %q, want self_delete", env.Code)
	}

	rec = call(t, h.HandleDeleteUser, "DELETE", "/api/admin/users/"+student.ID.Hex(), student.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)

	db := fx.DB()
	if n, _ := db.Collection("users").CountDocuments(ctx, bson.M{"_id": student.ID}); n != 0 {
		t.Error("user not deleted")
	}
	if n, _ := db.Collection("plans").CountDocuments(ctx, bson.M{"user_id": student.ID}); n != 0 {
		t.Error("plan not deleted")
	}

	rec = call(t, h.HandleDeleteUser, "DELETE", "/api/admin/users/"+student.ID.Hex(), student.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestDeleteDepartment_InUse(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	used := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	empty := fx.CreateDepartment(ctx, "HIS", "History", "Humanities")
	fx.CreateCourse(ctx, "CSE101", "Intro to Programming", 3, models.CategoryMajorRequired, &used.ID)
	su := testutil.AdminUser()

	rec := call(t, h.HandleDeleteDepartment, "DELETE", "/api/admin/departments/"+used.ID.Hex(), used.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusConflict)
	if env := testutil.DecodeEnvelope(t, rec); env.Code != "department_in_use" {
		t.Errorf("code = %q, want department_in_use", env.Code)
	}

	rec = call(t, h.HandleDeleteDepartment, "DELETE", "/api/admin/departments/"+empty.ID.Hex(), empty.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	if n, _ := fx.DB().Collection("departments").CountDocuments(ctx, bson.M{"_id": empty.ID}); n != 0 {
		t.Error("department not deleted")
	}
}

func TestCourseLifecycle(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	intro := fx.CreateCourse(ctx, "CSE101", "Intro to Programming", 3, models.CategoryMajorRequired, &dept.ID)
	su := testutil.AdminUser()

	rec := call(t, h.HandleCreateCourse, "POST", "/api/admin/courses", "", map[string]interface{}{
		"code":          "CSE201",
		"name":          "Data Structures",
		"credits":       3,
		"departmentId":  dept.ID.Hex(),
		"category":      "major_required",
		"semesters":     []string{"spring", "fall"},
		"prerequisites": []string{intro.ID.Hex()},
	}, su)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var created models.Course
	testutil.DecodeData(t, rec, &created)
	if !created.IsOfficial() || len(created.Prerequisites) != 1 || !created.Active {
		t.Fatalf("unexpected course: %+v", created)
	}

	owner := fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)
	fx.CreatePlan(ctx, owner.ID, models.Semester{Year: 2025, Term: models.TermSpring, Courses: []models.PlannedCourse{
		{CourseID: created.ID.Hex(), Status: models.StatusPlanned},
	}})

	rec = call(t, h.HandleUpdateCourse, "PUT", "/api/admin/courses/"+created.ID.Hex(), created.ID.Hex(), map[string]interface{}{
		"code":          "CSE201",
		"name":          "Data Structures",
		"credits":       3,
		"category":      "major_required",
		"prerequisites": []string{created.ID.Hex()},
	}, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = call(t, h.HandleDeleteCourse, "DELETE", "/api/admin/courses/"+created.ID.Hex(), created.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var plan models.Plan
	if err := fx.DB().Collection("plans").FindOne(ctx, bson.M{"user_id": owner.ID}).Decode(&plan); err != nil {
		t.Fatalf("load plan: %v", err)
	}
	for _, s := range plan.Semesters {
		if len(s.Courses) != 0 {
			t.Errorf("deleted course still planned in %d %s", s.Year, s.Term)
		}
	}

	custom := fx.CreateCustomCourse(ctx, owner.ID, "EXT100", "Transfer Credit", 3, models.CategoryFreeElective)
	rec = call(t, h.HandleDeleteCourse, "DELETE", "/api/admin/courses/"+custom.ID.Hex(), custom.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestCreateCourse_Validation(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	custom := fx.CreateCustomCourse(ctx, fx.CreateAdmin(ctx, "Root", "root@example.com").ID, "EXT100", "Transfer", 3, models.CategoryFreeElective)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing code", map[string]interface{}{"name": "X", "category": "major_required"}},
		{"bad category", map[string]interface{}{"code": "X1", "name": "X", "category": "elective"}},
		{"too many credits", map[string]interface{}{"code": "X1", "name": "X", "credits": 31, "category": "major_required"}},
		{"bad term", map[string]interface{}{"code": "X1", "name": "X", "category": "major_required", "semesters": []string{"autumn"}}},
		{"unknown department", map[string]interface{}{"code": "X1", "name": "X", "category": "major_required", "departmentId": custom.ID.Hex()}},
		{"custom prerequisite", map[string]interface{}{"code": "X1", "name": "X", "category": "major_required", "prerequisites": []string{custom.ID.Hex()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.HandleCreateCourse, "POST", "/api/admin/courses", "", tt.body, testutil.AdminUser())
			if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 400 or 404 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeptReqLifecycle(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	su := testutil.AdminUser()

	body := map[string]interface{}{
		"departmentId": dept.ID.Hex(),
		"catalogYear":  2025,
		"single":       map[string]int{"totalCredits": 130, "primaryMajorCredits": 60, "primaryMajorRequiredMin": 30, "generalCredits": 30},
		"double":       map[string]int{"totalCredits": 130, "primaryMajorCredits": 39, "generalCredits": 30, "secondaryMajorCredits": 39},
		"minor":        map[string]int{"totalCredits": 130, "primaryMajorCredits": 60, "generalCredits": 30, "minorCredits": 21},
	}
	rec := call(t, h.HandleCreateDeptReq, "POST", "/api/admin/department-requirements", "", body, su)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var table models.DepartmentRequirement
	testutil.DecodeData(t, rec, &table)
	if table.College != "Engineering" || table.Single.PrimaryMajorCredits != 60 {
		t.Errorf("unexpected table: %+v", table)
	}

	body["single"] = map[string]int{"primaryMajorCredits": 10, "primaryMajorRequiredMin": 20}
	rec = call(t, h.HandleUpdateDeptReq, "PUT", "/api/admin/department-requirements/"+table.ID.Hex(), table.ID.Hex(), body, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = call(t, h.HandleDeleteDeptReq, "DELETE", "/api/admin/department-requirements/"+table.ID.Hex(), table.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	rec = call(t, h.HandleDeleteDeptReq, "DELETE", "/api/admin/department-requirements/"+table.ID.Hex(), table.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestUpdateFeedback_Reply(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Kim", "kim@example.com", models.RoleStudent, nil)
	fb := fx.CreateFeedback(ctx, u, "The planner is great")
	su := testutil.AdminUser()

	rec := call(t, h.HandleUpdateFeedback, "PATCH", "/api/admin/feedback/"+fb.ID.Hex(), fb.ID.Hex(), map[string]string{}, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = call(t, h.HandleUpdateFeedback, "PATCH", "/api/admin/feedback/"+fb.ID.Hex(), fb.ID.Hex(),
		map[string]string{"status": "resolved", "reply": "<b>Thanks</b> for writing"}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var got models.Feedback
	testutil.DecodeData(t, rec, &got)
	if got.Status != models.FeedbackResolved || got.AdminReply != "Thanks for writing" || got.ReplyRead {
		t.Errorf("unexpected feedback: %+v", got)
	}

	rec = call(t, h.ServeFeedback, "GET", "/api/admin/feedback?status=resolved", "", nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var page admin.FeedbackPage
	testutil.DecodeData(t, rec, &page)
	if page.Total != 1 || len(page.Items) != 1 {
		t.Errorf("got %d/%d items, want 1/1", len(page.Items), page.Total)
	}
}

func TestPatchNotePublish(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	su := testutil.AdminUser()

	rec := call(t, h.HandleCreatePatchNote, "POST", "/api/admin/patch-notes", "", map[string]interface{}{
		"version": "1.2.0", "title": "Guest mode", "content": "<p>Plan without an account</p><script>x()</script>",
	}, su)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var note models.PatchNote
	testutil.DecodeData(t, rec, &note)
	if note.Published {
		t.Error("new note should be a draft")
	}

	rec = call(t, h.HandlePublish, "PATCH", "/api/admin/patch-notes/"+note.ID.Hex()+"/publish", note.ID.Hex(),
		map[string]bool{"published": true}, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.DecodeData(t, rec, &note)
	if !note.Published || note.PublishedAt == nil {
		t.Errorf("note not published: %+v", note)
	}

	fx.CreatePatchNote(ctx, "1.1.0", "Older", true)
	rec = call(t, h.ServePatchNotes, "GET", "/api/admin/patch-notes", "", nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var list []models.PatchNote
	testutil.DecodeData(t, rec, &list)
	if len(list) != 2 {
		t.Errorf("got %d notes, want 2", len(list))
	}
}

func TestEventLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)
	su := testutil.AdminUser()

	rec := call(t, h.HandleCreateEvent, "POST", "/api/admin/academic-events", "", map[string]interface{}{
		"title": "Midterms", "category": "exam",
		"startDate": "2025-04-20T00:00:00Z", "endDate": "2025-04-18T00:00:00Z",
	}, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = call(t, h.HandleCreateEvent, "POST", "/api/admin/academic-events", "", map[string]interface{}{
		"title": "Midterms", "category": "exam",
		"startDate": "2025-04-20T00:00:00Z", "endDate": "2025-04-26T00:00:00Z",
	}, su)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var ev models.AcademicEvent
	testutil.DecodeData(t, rec, &ev)

	rec = call(t, h.ServeEvents, "GET", "/api/admin/academic-events?year=2025&month=4", "", nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var list []models.AcademicEvent
	testutil.DecodeData(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("got %d events, want 1", len(list))
	}

	rec = call(t, h.HandleDeleteEvent, "DELETE", "/api/admin/academic-events/"+ev.ID.Hex(), ev.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	rec = call(t, h.HandleDeleteEvent, "DELETE", "/api/admin/academic-events/"+ev.ID.Hex(), ev.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestServeAudit(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "HIS", "History", "Humanities")
	root := fx.CreateAdmin(ctx, "Root", "root@example.com")
	su := testutil.SessionFor(root)

	rec := call(t, h.HandleDeleteDepartment, "DELETE", "/api/admin/departments/"+dept.ID.Hex(), dept.ID.Hex(), nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)

	rec = call(t, h.ServeAudit, "GET", "/api/admin/audit?category=admin&eventType="+audit.EventDepartmentDeleted, "", nil, su)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var page admin.AuditPage
	testutil.DecodeData(t, rec, &page)
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("got %d/%d events, want 1/1", len(page.Items), page.Total)
	}
	if ev := page.Items[0]; ev.ActorID == nil || *ev.ActorID != root.ID || ev.Details["code"] != "HIS" {
		t.Errorf("unexpected event: %+v", ev)
	}

	rec = call(t, h.ServeAudit, "GET", "/api/admin/audit?since=yesterday", "", nil, su)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestServeOverview(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	dept := fx.CreateDepartment(ctx, "CSE", "Computer Science", "Engineering")
	fx.CreateAdmin(ctx, "Root", "root@example.com")
	fx.CreateStudent(ctx, "Kim", "kim@example.com", dept.ID)

	rec := call(t, h.ServeOverview, "GET", "/api/admin/stats/overview", "", nil, testutil.AdminUser())
	testutil.AssertStatus(t, rec, http.StatusOK)
	var ov statistics.Overview
	testutil.DecodeData(t, rec, &ov)
	if ov.Users != 2 || ov.Admins != 1 || ov.Departments != 1 {
		t.Errorf("unexpected overview: %+v", ov)
	}
}
