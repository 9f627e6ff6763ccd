// internal/app/features/courses/handler.go
package courses

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	planstore "github.com/hwankr/courseplanner/internal/app/store/plans"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Courses     *coursestore.Store
	Departments *departmentstore.Store
	Plans       *planstore.Store
	Errors      *jsonapi.Reporter
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Courses:     coursestore.New(db),
		Departments: departmentstore.New(db),
		Plans:       planstore.New(db),
		Errors:      errs,
		Log:         logger,
	}
}

// viewer returns the signed-in user's id, or nil for anonymous callers.
func viewer(r *http.Request) *primitive.ObjectID {
	if _, _, uid, ok := authz.UserCtx(r); ok {
		return &uid
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/courses                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList lists the catalog visible to the caller.
//
// Query: department (id), category, q (code or name), includeCommon, mine.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := coursestore.ListFilter{
		Category: normalize.Enum(q.Get("category")),
		Search:   normalize.QueryParam(q.Get("q")),
		Viewer:   viewer(r),
	}
	if dept := normalize.FilterID(q.Get("department")); dept != "" {
		oid, err := inputval.ParseObjectID("department", dept)
		if err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
		f.DepartmentID = &oid
	}
	if f.Category != "" && !models.IsValidCategory(f.Category) {
		h.Errors.Fail(w, r, apperr.Validation("category is not a known course category"))
		return
	}
	f.IncludeCommon, _ = strconv.ParseBool(q.Get("includeCommon"))
	f.OnlyCustom, _ = strconv.ParseBool(q.Get("mine"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Courses.List(ctx, f)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/courses/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// load fetches the course named by the {id} URL parameter. Courses the
// caller may not see are reported as not found.
func (h *Handler) load(ctx context.Context, r *http.Request) (models.Course, error) {
	id, err := inputval.ParseObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		return models.Course{}, err
	}
	c, err := h.Courses.GetByID(ctx, id)
	if err == mongo.ErrNoDocuments || (err == nil && !authz.CanSeeCourse(r, c)) {
		return models.Course{}, apperr.NotFound("Course not found")
	}
	return c, err
}

func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.load(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, c)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Custom courses: POST /api/courses, PUT|DELETE /api/courses/{id}              |
*─────────────────────────────────────────────────────────────────────────────*/

type customCourseRequest struct {
	Code         string `json:"code" validate:"required,notblank,max=20"`
	Name         string `json:"name" validate:"required,notblank,max=100"`
	Credits      int    `json:"credits" validate:"gte=1,lte=30"`
	Category     string `json:"category" validate:"required,category"`
	DepartmentID string `json:"departmentId" validate:"omitempty,objectid"`
	Description  string `json:"description" validate:"max=1000"`
}

func (h *Handler) department(ctx context.Context, hex string) (*primitive.ObjectID, error) {
	if strings.TrimSpace(hex) == "" {
		return nil, nil
	}
	oid, err := inputval.ParseObjectID("departmentId", hex)
	if err != nil {
		return nil, err
	}
	ok, err := h.Departments.Exists(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("Department not found")
	}
	return &oid, nil
}

func duplicate(err error) error {
	if err == coursestore.ErrDuplicateCourse {
		return apperr.New(apperr.KindConflict, "duplicate_course", "You already have a course with this code")
	}
	return err
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in customCourseRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	dept, err := h.department(ctx, in.DepartmentID)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	c, err := h.Courses.Create(ctx, models.Course{
		Code:         in.Code,
		Name:         in.Name,
		Credits:      in.Credits,
		Category:     in.Category,
		DepartmentID: dept,
		Description:  in.Description,
		CreatedBy:    &uid,
	})
	if err != nil {
		h.Errors.Fail(w, r, duplicate(err))
		return
	}
	jsonapi.Created(w, c)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in customCourseRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.load(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if c.IsOfficial() || !authz.CanEditCourse(r, c) {
		h.Errors.Fail(w, r, apperr.Forbidden("Only your own custom courses can be edited"))
		return
	}
	dept, err := h.department(ctx, in.DepartmentID)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	upd := coursestore.Update{
		Code:        &in.Code,
		Name:        &in.Name,
		Credits:     &in.Credits,
		Category:    &in.Category,
		Description: &in.Description,
	}
	if dept != nil {
		upd.DepartmentID = dept
	} else {
		upd.ClearDepartment = c.DepartmentID != nil
	}
	updated, err := h.Courses.Update(ctx, c.ID, upd)
	if err != nil {
		h.Errors.Fail(w, r, duplicate(err))
		return
	}
	jsonapi.OK(w, updated)
}

// HandleDelete removes an own custom course and pulls it from every plan.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.load(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if c.IsOfficial() || !authz.CanEditCourse(r, c) {
		h.Errors.Fail(w, r, apperr.Forbidden("Only your own custom courses can be deleted"))
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
	h.Log.Debug("custom course deleted", zap.String("course_id", c.ID.Hex()), zap.Int64("plans_updated", n))
	jsonapi.Message(w, nil, "Course deleted")
}
