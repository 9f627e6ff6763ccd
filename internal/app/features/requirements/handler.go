// internal/app/features/requirements/handler.go
package requirements

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	deptreqstore "github.com/hwankr/courseplanner/internal/app/store/deptreqs"
	gradreqstore "github.com/hwankr/courseplanner/internal/app/store/gradreqs"
	planstore "github.com/hwankr/courseplanner/internal/app/store/plans"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/planner"
	"github.com/hwankr/courseplanner/internal/domain/progress"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Requirements *gradreqstore.Store
	Plans        *planstore.Store
	Courses      *coursestore.Store
	DeptReqs     *deptreqstore.Store
	Errors       *jsonapi.Reporter
	Log          *zap.Logger
}

func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Requirements: gradreqstore.New(db),
		Plans:        planstore.New(db),
		Courses:      coursestore.New(db),
		DeptReqs:     deptreqstore.New(db),
		Errors:       errs,
		Log:          logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET|PUT /api/graduation-requirements                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRequirement returns the caller's requirement; data is absent when
// none has been saved.
func (h *Handler) ServeRequirement(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Requirements.GetByUser(ctx, uid)
	if err == mongo.ErrNoDocuments {
		jsonapi.OK(w, nil)
		return
	}
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, g)
}

func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var in inputval.RequirementInput
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

	var g models.GraduationRequirement
	in.Apply(&g)
	saved, err := h.Requirements.Upsert(ctx, uid, g)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.Message(w, saved, "Graduation requirement saved")
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/graduation-requirements/progress                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeProgress(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Requirements.GetByUser(ctx, uid)
	if err == mongo.ErrNoDocuments {
		h.Errors.Fail(w, r, apperr.NotFound("Set your graduation requirement first"))
		return
	}
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	p, err := h.Plans.GetByUser(ctx, uid)
	if err == mongo.ErrNoDocuments {
		p = &models.Plan{Semesters: []models.Semester{}}
	} else if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	cat, err := h.Courses.Catalog(ctx, planner.CourseIDs(p))
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	for id, c := range cat {
		if !c.IsOfficial() && *c.CreatedBy != uid {
			delete(cat, id)
		}
	}

	jsonapi.OK(w, progress.Calculate(*g, planner.Hydrate(p, cat), u.DepartmentID, u.SecondaryDepartmentID))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/graduation-requirements/defaults                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// DefaultsView is the department table that applies to a student plus the
// targets for the chosen major type.
type DefaultsView struct {
	MajorType             string                       `json:"majorType"`
	Targets               models.RequirementTargets    `json:"targets"`
	DepartmentRequirement models.DepartmentRequirement `json:"departmentRequirement"`
}

// Defaults looks up the department table for (deptHex, year) and picks the
// targets for majorType.
func Defaults(ctx context.Context, store *deptreqstore.Store, deptHex string, year int, majorType string) (DefaultsView, error) {
	deptID, err := inputval.ParseObjectID("departmentId", deptHex)
	if err != nil {
		return DefaultsView{}, err
	}
	if majorType == "" {
		majorType = models.MajorSingle
	}
	if !models.IsValidMajorType(majorType) {
		return DefaultsView{}, apperr.Validation("majorType must be one of single, double, minor")
	}
	d, err := store.Defaults(ctx, deptID, year)
	if err == mongo.ErrNoDocuments {
		return DefaultsView{}, apperr.NotFound("No default requirements for this department")
	}
	if err != nil {
		return DefaultsView{}, err
	}
	return DefaultsView{MajorType: majorType, Targets: d.TargetsFor(majorType), DepartmentRequirement: d}, nil
}

// ServeDefaults reads departmentId, year and majorType from the query,
// falling back to the caller's profile.
func (h *Handler) ServeDefaults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dept := strings.TrimSpace(q.Get("departmentId"))
	majorType := strings.TrimSpace(q.Get("majorType"))
	if u, ok := auth.CurrentUser(r); ok {
		if dept == "" {
			dept = u.DepartmentID
		}
		if majorType == "" {
			majorType = u.MajorType
		}
	}
	if dept == "" {
		h.Errors.Fail(w, r, apperr.Validation("departmentId is required"))
		return
	}
	year := 0
	if s := q.Get("year"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.Errors.Fail(w, r, apperr.Validation("year must be a number"))
			return
		}
		year = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := Defaults(ctx, h.DeptReqs, dept, year, majorType)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, v)
}
