// internal/app/features/admin/courses.go
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Official catalog                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type courseRequest struct {
	Code                string   `json:"code" validate:"required,notblank,max=20"`
	Name                string   `json:"name" validate:"required,notblank,max=100"`
	Credits             int      `json:"credits" validate:"gte=0,lte=30"`
	DepartmentID        string   `json:"departmentId" validate:"omitempty,objectid"`
	Category            string   `json:"category" validate:"required,category"`
	Semesters           []string `json:"semesters" validate:"omitempty,terms"`
	RecommendedYear     int      `json:"recommendedYear" validate:"gte=0,lte=6"`
	RecommendedSemester string   `json:"recommendedSemester" validate:"omitempty,term"`
	Prerequisites       []string `json:"prerequisites" validate:"omitempty,dive,objectid"`
	Description         string   `json:"description" validate:"max=2000"`
	Active              *bool    `json:"active"`
}

// resolve checks the department and prerequisite references.
func (h *Handler) resolve(ctx context.Context, in courseRequest) (*primitive.ObjectID, []primitive.ObjectID, error) {
	var dept *primitive.ObjectID
	if in.DepartmentID != "" {
		oid, err := inputval.ParseObjectID("departmentId", in.DepartmentID)
		if err != nil {
			return nil, nil, err
		}
		if _, err := h.Departments.GetByID(ctx, oid); err != nil {
			return nil, nil, notFound(err, "Department")
		}
		dept = &oid
	}
	prereqs := make([]primitive.ObjectID, 0, len(in.Prerequisites))
	for _, raw := range in.Prerequisites {
		oid, err := inputval.ParseObjectID("prerequisites", raw)
		if err != nil {
			return nil, nil, err
		}
		prereqs = append(prereqs, oid)
	}
	if len(prereqs) > 0 {
		hex := make([]string, len(prereqs))
		for i, p := range prereqs {
			hex[i] = p.Hex()
		}
		found, err := h.Courses.Catalog(ctx, hex)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range hex {
			if c, ok := found[p]; !ok || !c.IsOfficial() {
				return nil, nil, apperr.Validation("prerequisites must name official courses")
			}
		}
	}
	return dept, prereqs, nil
}

func courseConflict(err error) error {
	if errors.Is(err, coursestore.ErrDuplicateCourse) {
		return apperr.New(apperr.KindConflict, "duplicate_course", "An official course with this code already exists")
	}
	return err
}

// loadOfficial fetches the {id} course; custom courses are not managed here.
func (h *Handler) loadOfficial(ctx context.Context, r *http.Request) (models.Course, error) {
	id, err := idParam(r)
	if err != nil {
		return models.Course{}, err
	}
	c, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return models.Course{}, notFound(err, "Course")
	}
	if !c.IsOfficial() {
		return models.Course{}, apperr.NotFound("Course not found")
	}
	return c, nil
}

// ServeCourses lists official courses including inactive ones.
//
// Query: department, category, q.
func (h *Handler) ServeCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := coursestore.ListFilter{
		Category:        normalize.Enum(q.Get("category")),
		Search:          normalize.QueryParam(q.Get("q")),
		IncludeInactive: true,
	}
	if raw := normalize.FilterID(q.Get("department")); raw != "" {
		oid, err := inputval.ParseObjectID("department", raw)
		if err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
		f.DepartmentID = &oid
	}
	f.IncludeCommon, _ = strconv.ParseBool(q.Get("includeCommon"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Courses.List(ctx, f)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

func (h *Handler) HandleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var in courseRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	dept, prereqs, err := h.resolve(ctx, in)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	c, err := h.Courses.Create(ctx, models.Course{
		Code:                in.Code,
		Name:                in.Name,
		Credits:             in.Credits,
		DepartmentID:        dept,
		Category:            in.Category,
		Semesters:           in.Semesters,
		RecommendedYear:     in.RecommendedYear,
		RecommendedSemester: in.RecommendedSemester,
		Prerequisites:       prereqs,
		Description:         in.Description,
	})
	if err != nil {
		h.Errors.Fail(w, r, courseConflict(err))
		return
	}
	if in.Active != nil && !*in.Active {
		if c, err = h.Courses.Update(ctx, c.ID, coursestore.Update{Active: in.Active}); err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
	}

	h.AuditLog.Admin(ctx, r, audit.EventCourseCreated, actor(r), nil, map[string]string{"course_id": c.ID.Hex(), "code": c.Code})
	h.invalidateStats()
	jsonapi.Created(w, c)
}

func (h *Handler) HandleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var in courseRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.loadOfficial(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	dept, prereqs, err := h.resolve(ctx, in)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	for _, p := range prereqs {
		if p == c.ID {
			h.Errors.Fail(w, r, apperr.Validation("a course cannot be its own prerequisite"))
			return
		}
	}

	upd := coursestore.Update{
		Code:                &in.Code,
		Name:                &in.Name,
		Credits:             &in.Credits,
		DepartmentID:        dept,
		ClearDepartment:     dept == nil,
		Category:            &in.Category,
		Semesters:           in.Semesters,
		RecommendedYear:     &in.RecommendedYear,
		RecommendedSemester: &in.RecommendedSemester,
		Prerequisites:       prereqs,
		Description:         &in.Description,
		Active:              in.Active,
	}
	if upd.Semesters == nil {
		upd.Semesters = []string{}
	}
	updated, err := h.Courses.Update(ctx, c.ID, upd)
	if err != nil {
		h.Errors.Fail(w, r, courseConflict(err))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventCourseUpdated, actor(r), nil, map[string]string{"course_id": c.ID.Hex(), "code": updated.Code})
	h.invalidateStats()
	jsonapi.OK(w, updated)
}

// HandleDeleteCourse removes an official course and pulls it from every plan.
func (h *Handler) HandleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	c, err := h.loadOfficial(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if _, err := h.Courses.Delete(ctx, c.ID); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	n, err := h.Plans.RemoveCourseEverywhere(ctx, c.ID.Hex())
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventCourseDeleted, actor(r), nil, map[string]string{"course_id": c.ID.Hex(), "code": c.Code})
	h.invalidateStats()
	h.Log.Info("course deleted", zap.String("code", c.Code), zap.Int64("plans_updated", n))
	jsonapi.Message(w, map[string]int64{"plansUpdated": n}, "Course deleted")
}
