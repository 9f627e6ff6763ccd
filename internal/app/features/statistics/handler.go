// internal/app/features/statistics/handler.go
package statistics

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	"github.com/hwankr/courseplanner/internal/app/store/queries/statistics"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Stats       *statistics.Service
	Courses     *coursestore.Store
	Departments *departmentstore.Store
	Errors      *jsonapi.Reporter
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, stats *statistics.Service, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Stats:       stats,
		Courses:     coursestore.New(db),
		Departments: departmentstore.New(db),
		Errors:      errs,
		Log:         logger,
	}
}

// ServeDepartment returns statistics for ?departmentId=, defaulting to the
// caller's primary department.
func (h *Handler) ServeDepartment(w http.ResponseWriter, r *http.Request) {
	var dept primitive.ObjectID
	if raw := normalize.FilterID(r.URL.Query().Get("departmentId")); raw != "" {
		oid, err := inputval.ParseObjectID("departmentId", raw)
		if err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
		dept = oid
	} else {
		primary, _ := authz.UserDepartments(r)
		if primary == nil {
			h.Errors.Fail(w, r, apperr.Validation("departmentId is required"))
			return
		}
		dept = *primary
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Departments.GetByID(ctx, dept); err != nil {
		if err == mongo.ErrNoDocuments {
			err = apperr.NotFound("Department not found")
		}
		h.Errors.Fail(w, r, err)
		return
	}
	st, err := h.Stats.Department(ctx, dept)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, st)
}

// ServeCourse returns placement statistics for an official course or one of
// the caller's own custom courses.
func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Courses.GetByID(ctx, id)
	if err == mongo.ErrNoDocuments || (err == nil && !authz.CanSeeCourse(r, c)) {
		h.Errors.Fail(w, r, apperr.NotFound("Course not found"))
		return
	}
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	st, err := h.Stats.Course(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, st)
}
