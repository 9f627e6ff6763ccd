// internal/app/features/plans/operations.go
package plans

import (
	"context"
	"net/http"
	"strings"

	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/planner"
)

// AddCourseResult is returned by POST .../courses.
type AddCourseResult struct {
	Plan  planner.View `json:"plan"`
	Added bool         `json:"added"`
}

type semesterRequest struct {
	Year int    `json:"year" validate:"required,gte=1990,lte=2100"`
	Term string `json:"term" validate:"required,term"`
}

type courseRequest struct {
	Year     int    `json:"year" validate:"required,gte=1990,lte=2100"`
	Term     string `json:"term" validate:"required,term"`
	CourseID string `json:"courseId" validate:"required,notblank,max=64"`
	Status   string `json:"status" validate:"omitempty,course_status"`
}

type moveRequest struct {
	FromYear int    `json:"fromYear" validate:"required,gte=1990,lte=2100"`
	FromTerm string `json:"fromTerm" validate:"required,term"`
	ToYear   int    `json:"toYear" validate:"required,gte=1990,lte=2100"`
	ToTerm   string `json:"toTerm" validate:"required,term"`
	CourseID string `json:"courseId" validate:"required,notblank,max=64"`
}

type statusRequest struct {
	Year     int    `json:"year" validate:"required,gte=1990,lte=2100"`
	Term     string `json:"term" validate:"required,term"`
	CourseID string `json:"courseId" validate:"required,notblank,max=64"`
	Status   string `json:"status" validate:"required,course_status"`
	Grade    string `json:"grade" validate:"omitempty,grade"`
}

// run resolves the session, applies op and writes the resulting plan.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, op planner.Op, msg string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess, err := h.Resolve(w, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	p, _, err := planner.Apply(ctx, sess.Storage, op)
	if err != nil {
		h.Errors.Fail(w, r, classify(err))
		return
	}
	v, err := h.view(ctx, sess, p)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.Message(w, v, msg)
}

func (h *Handler) view(ctx context.Context, sess Session, p *models.Plan) (planner.View, error) {
	cat, err := sess.Catalog(ctx, planner.CourseIDs(p))
	if err != nil {
		return planner.View{}, err
	}
	return planner.BuildView(p, cat), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET plan                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess, err := h.Resolve(w, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	p, err := sess.Storage.Load(ctx)
	if err != nil {
		h.Errors.Fail(w, r, classify(err))
		return
	}
	v, err := h.view(ctx, sess, p)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, v)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Semesters                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(p *models.Plan) (bool, error) {
		return planner.Reset(p), nil
	}, "Plan reset")
}

func (h *Handler) HandleAddSemester(w http.ResponseWriter, r *http.Request) {
	var in semesterRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	h.run(w, r, func(p *models.Plan) (bool, error) {
		return planner.AddSemester(p, in.Year, in.Term), nil
	}, "")
}

func (h *Handler) HandleRemoveSemester(w http.ResponseWriter, r *http.Request) {
	var in semesterRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	h.run(w, r, func(p *models.Plan) (bool, error) {
		return planner.RemoveSemester(p, in.Year, in.Term), nil
	}, "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| Courses                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleAddCourse places a course. A course already anywhere in the plan is
// left where it is and reported with added=false.
func (h *Handler) HandleAddCourse(w http.ResponseWriter, r *http.Request) {
	var in courseRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	courseID := strings.TrimSpace(in.CourseID)
	status := in.Status
	if status == "" {
		status = models.StatusPlanned
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess, err := h.Resolve(w, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	known, err := sess.Catalog(ctx, []string{courseID})
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if _, ok := known[courseID]; !ok {
		h.Errors.Fail(w, r, apperr.NotFound("Course not found"))
		return
	}

	var res planner.AddResult
	p, _, err := planner.Apply(ctx, sess.Storage, func(p *models.Plan) (bool, error) {
		var err error
		res, err = planner.AddCourse(p, in.Year, in.Term, courseID, status)
		return err == nil && res == planner.Added, err
	})
	if err != nil {
		h.Errors.Fail(w, r, classify(err))
		return
	}
	v, err := h.view(ctx, sess, p)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if res == planner.AlreadyPlanned {
		jsonapi.Message(w, AddCourseResult{Plan: v}, "course already in plan")
		return
	}
	jsonapi.OK(w, AddCourseResult{Plan: v, Added: true})
}

func (h *Handler) HandleRemoveCourse(w http.ResponseWriter, r *http.Request) {
	var in courseRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	courseID := strings.TrimSpace(in.CourseID)
	h.run(w, r, func(p *models.Plan) (bool, error) {
		return planner.RemoveCourse(p, in.Year, in.Term, courseID), nil
	}, "")
}

func (h *Handler) HandleMoveCourse(w http.ResponseWriter, r *http.Request) {
	var in moveRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	courseID := strings.TrimSpace(in.CourseID)
	h.run(w, r, func(p *models.Plan) (bool, error) {
		return planner.MoveCourse(p, in.FromYear, in.FromTerm, in.ToYear, in.ToTerm, courseID)
	}, "")
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	courseID := strings.TrimSpace(in.CourseID)
	h.run(w, r, func(p *models.Plan) (bool, error) {
		return planner.UpdateCourseStatus(p, in.Year, in.Term, courseID, in.Status, in.Grade)
	}, "")
}
