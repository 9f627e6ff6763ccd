// internal/app/features/guestmode/handler.go
//
// Package guestmode serves /api/guest: the profile, graduation requirement
// and custom courses of an account-less planner session. Plan operations
// are served by the plans package with cookie storage.
package guestmode

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hwankr/courseplanner/internal/app/features/plans"
	"github.com/hwankr/courseplanner/internal/app/features/requirements"
	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	deptreqstore "github.com/hwankr/courseplanner/internal/app/store/deptreqs"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/guest"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/planner"
	"github.com/hwankr/courseplanner/internal/domain/progress"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Guests      *guest.Store
	Departments *departmentstore.Store
	Courses     *coursestore.Store
	DeptReqs    *deptreqstore.Store
	Errors      *jsonapi.Reporter
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, guests *guest.Store, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Guests:      guests,
		Departments: departmentstore.New(db),
		Courses:     coursestore.New(db),
		DeptReqs:    deptreqstore.New(db),
		Errors:      errs,
		Log:         logger,
	}
}

func storageErr(err error) error {
	if errors.Is(err, guest.ErrTooLarge) {
		return apperr.Rule("guest_storage_full", guest.ErrTooLarge.Error())
	}
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Profile                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type profileRequest struct {
	DepartmentID          string `json:"departmentId" validate:"required,objectid"`
	SecondaryDepartmentID string `json:"secondaryDepartmentId" validate:"omitempty,objectid"`
	MajorType             string `json:"majorType" validate:"required,major_type"`
	EnrollmentYear        int    `json:"enrollmentYear" validate:"omitempty,gte=1990,lte=2100"`
}

// ServeProfile returns the guest profile; data is absent before one is chosen.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Guests.Profile(r)
	if !ok {
		jsonapi.OK(w, nil)
		return
	}
	jsonapi.OK(w, p)
}

// HandleSaveProfile stores the department choice and turns guest mode on.
// The first save also seeds the graduation requirement from the department
// table when one exists.
func (h *Handler) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var in profileRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.checkDepartments(ctx, in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	p := guest.Profile{
		DepartmentID:   in.DepartmentID,
		MajorType:      in.MajorType,
		EnrollmentYear: in.EnrollmentYear,
	}
	if in.MajorType != models.MajorSingle {
		p.SecondaryDepartmentID = in.SecondaryDepartmentID
	}
	if err := h.Guests.SaveProfile(w, r, p); err != nil {
		h.Errors.Fail(w, r, storageErr(err))
		return
	}

	if _, ok := h.Guests.Requirement(r); !ok {
		h.seedRequirement(ctx, w, r, p)
	}
	jsonapi.Message(w, p, "Guest profile saved")
}

func (h *Handler) checkDepartments(ctx context.Context, in profileRequest) error {
	ids := []string{in.DepartmentID}
	if in.MajorType != models.MajorSingle {
		if in.SecondaryDepartmentID == "" {
			return apperr.Validation("A second department is required for a double major or minor")
		}
		if in.SecondaryDepartmentID == in.DepartmentID {
			return apperr.Validation("The second department must differ from the primary department")
		}
		ids = append(ids, in.SecondaryDepartmentID)
	}
	for _, raw := range ids {
		oid, err := inputval.ParseObjectID("departmentId", raw)
		if err != nil {
			return err
		}
		d, err := h.Departments.GetByID(ctx, oid)
		if err == mongo.ErrNoDocuments || (err == nil && !d.Active) {
			return apperr.Validation("Department not found")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// seedRequirement copies the department defaults into the guest
// requirement. Missing defaults leave the requirement unset.
func (h *Handler) seedRequirement(ctx context.Context, w http.ResponseWriter, r *http.Request, p guest.Profile) {
	v, err := requirements.Defaults(ctx, h.DeptReqs, p.DepartmentID, p.EnrollmentYear, p.MajorType)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			h.Log.Warn("guest requirement defaults", zap.Error(err), zap.String("department_id", p.DepartmentID))
		}
		return
	}
	g := models.GraduationRequirement{MajorType: v.MajorType, RequirementTargets: v.Targets}
	if err := h.Guests.SaveRequirement(w, r, g); err != nil {
		h.Log.Warn("seed guest requirement", zap.Error(err))
	}
}

// HandleClear ends guest mode and drops all guest state.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.Guests.Clear(w)
	jsonapi.Message(w, nil, "Guest data cleared")
}

/*─────────────────────────────────────────────────────────────────────────────*
| Graduation requirement                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRequirement(w http.ResponseWriter, r *http.Request) {
	g, ok := h.Guests.Requirement(r)
	if !ok {
		jsonapi.OK(w, nil)
		return
	}
	jsonapi.OK(w, g)
}

func (h *Handler) HandleSaveRequirement(w http.ResponseWriter, r *http.Request) {
	var in inputval.RequirementInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	var g models.GraduationRequirement
	in.Apply(&g)
	if err := h.Guests.SaveRequirement(w, r, g); err != nil {
		h.Errors.Fail(w, r, storageErr(err))
		return
	}
	jsonapi.Message(w, g, "Graduation requirement saved")
}

func (h *Handler) ServeProgress(w http.ResponseWriter, r *http.Request) {
	g, ok := h.Guests.Requirement(r)
	if !ok {
		h.Errors.Fail(w, r, apperr.NotFound("Set your graduation requirement first"))
		return
	}
	prof, _ := h.Guests.Profile(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := h.Guests.Plan(r)
	cat, err := plans.GuestCatalog(h.Courses, h.Guests.Courses(r))(ctx, planner.CourseIDs(p))
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, progress.Calculate(*g, planner.Hydrate(p, cat), prof.DepartmentID, prof.SecondaryDepartmentID))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Custom courses                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type courseRequest struct {
	Code     string `json:"code" validate:"required,notblank,max=20"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Credits  int    `json:"credits" validate:"gte=1,lte=30"`
	Category string `json:"category" validate:"required,category"`
}

func (h *Handler) ServeCourses(w http.ResponseWriter, r *http.Request) {
	jsonapi.OK(w, h.Guests.Courses(r))
}

// HandleCreateCourse adds a guest custom course with a "guest-" id.
func (h *Handler) HandleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var in courseRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	list := h.Guests.Courses(r)
	if len(list) >= guest.MaxCustomCourses {
		h.Errors.Fail(w, r, apperr.Rule("guest_course_limit",
			"Guests can keep up to "+strconv.Itoa(guest.MaxCustomCourses)+" custom courses"))
		return
	}
	code := normalize.Code(in.Code)
	for _, c := range list {
		if c.Code == code {
			h.Errors.Fail(w, r, apperr.New(apperr.KindConflict, "duplicate_course", "You already have a course with this code"))
			return
		}
	}

	c := guest.GuestCourse{
		ID:       "guest-" + uuid.NewString(),
		Code:     code,
		Name:     normalize.Name(in.Name),
		Credits:  in.Credits,
		Category: in.Category,
	}
	if err := h.Guests.SaveCourses(w, r, append(list, c)); err != nil {
		h.Errors.Fail(w, r, storageErr(err))
		return
	}
	jsonapi.Created(w, c)
}

// HandleDeleteCourse removes a guest custom course and unplaces it.
func (h *Handler) HandleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id := normalize.QueryParam(chi.URLParam(r, "id"))
	list := h.Guests.Courses(r)
	kept := list[:0]
	for _, c := range list {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(list) {
		h.Errors.Fail(w, r, apperr.NotFound("Course not found"))
		return
	}
	if err := h.Guests.SaveCourses(w, r, kept); err != nil {
		h.Errors.Fail(w, r, storageErr(err))
		return
	}
	p := h.Guests.Plan(r)
	if planner.RemoveCourseEverywhere(p, id) {
		if err := h.Guests.SavePlan(w, r, p); err != nil {
			h.Errors.Fail(w, r, storageErr(err))
			return
		}
	}
	jsonapi.Message(w, nil, "Course deleted")
}
