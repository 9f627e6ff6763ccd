// internal/app/features/departments/handler.go
//
// Package departments serves the public department directory and the
// department requirement tables students use as onboarding defaults.
package departments

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	deptreqstore "github.com/hwankr/courseplanner/internal/app/store/deptreqs"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Departments  *departmentstore.Store
	Requirements *deptreqstore.Store
	Errors       *jsonapi.Reporter
	Log          *zap.Logger
}

func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Departments:  departmentstore.New(db),
		Requirements: deptreqstore.New(db),
		Errors:       errs,
		Log:          logger,
	}
}

// ServeList lists active departments, optionally narrowed by ?college=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Departments.List(ctx, normalize.QueryParam(r.URL.Query().Get("college")), true)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

func (h *Handler) ServeDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ParseObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.Departments.GetByID(ctx, id)
	if err == mongo.ErrNoDocuments || (err == nil && !d.Active) {
		h.Errors.Fail(w, r, apperr.NotFound("Department not found"))
		return
	}
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, d)
}

// ServeRequirements lists department requirement tables.
//
// Query: college, departmentId, catalogYear.
func (h *Handler) ServeRequirements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := deptreqstore.Filter{College: normalize.QueryParam(q.Get("college"))}
	if raw := normalize.FilterID(q.Get("departmentId")); raw != "" {
		oid, err := inputval.ParseObjectID("departmentId", raw)
		if err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
		f.DepartmentID = &oid
	}
	if raw := normalize.QueryParam(q.Get("catalogYear")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1990 || year > 2100 {
			h.Errors.Fail(w, r, apperr.Validation("catalogYear must be a year between 1990 and 2100"))
			return
		}
		f.CatalogYear = year
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Requirements.List(ctx, f)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}
