// internal/app/features/admin/deptreqs.go
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	deptreqstore "github.com/hwankr/courseplanner/internal/app/store/deptreqs"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

type targetsInput struct {
	TotalCredits              int `json:"totalCredits" validate:"gte=0,lte=300"`
	PrimaryMajorCredits       int `json:"primaryMajorCredits" validate:"gte=0,lte=300"`
	PrimaryMajorRequiredMin   int `json:"primaryMajorRequiredMin" validate:"gte=0,ltefield=PrimaryMajorCredits"`
	GeneralCredits            int `json:"generalCredits" validate:"gte=0,lte=300"`
	SecondaryMajorCredits     int `json:"secondaryMajorCredits" validate:"gte=0,lte=300"`
	SecondaryMajorRequiredMin int `json:"secondaryMajorRequiredMin" validate:"gte=0,ltefield=SecondaryMajorCredits"`
	MinorCredits              int `json:"minorCredits" validate:"gte=0,lte=300"`
	MinorRequiredMin          int `json:"minorRequiredMin" validate:"gte=0,ltefield=MinorCredits"`
}

func (t targetsInput) targets() models.RequirementTargets {
	return models.RequirementTargets(t)
}

type deptReqRequest struct {
	DepartmentID string       `json:"departmentId" validate:"required,objectid"`
	CatalogYear  int          `json:"catalogYear" validate:"gte=1990,lte=2100"`
	Single       targetsInput `json:"single"`
	Double       targetsInput `json:"double"`
	Minor        targetsInput `json:"minor"`
}

// table builds the stored table; the college comes from the department.
func (h *Handler) table(ctx context.Context, in deptReqRequest) (models.DepartmentRequirement, error) {
	deptID, err := inputval.ParseObjectID("departmentId", in.DepartmentID)
	if err != nil {
		return models.DepartmentRequirement{}, err
	}
	d, err := h.Departments.GetByID(ctx, deptID)
	if err != nil {
		return models.DepartmentRequirement{}, notFound(err, "Department")
	}
	return models.DepartmentRequirement{
		College:      d.College,
		DepartmentID: deptID,
		CatalogYear:  in.CatalogYear,
		Single:       in.Single.targets(),
		Double:       in.Double.targets(),
		Minor:        in.Minor.targets(),
	}, nil
}

func deptReqConflict(err error) error {
	if errors.Is(err, deptreqstore.ErrDuplicate) {
		return apperr.New(apperr.KindConflict, "duplicate_requirement", deptreqstore.ErrDuplicate.Error())
	}
	return err
}

// ServeDeptReqs lists tables. Query: college, departmentId, catalogYear.
func (h *Handler) ServeDeptReqs(w http.ResponseWriter, r *http.Request) {
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
	if raw := q.Get("catalogYear"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			h.Errors.Fail(w, r, apperr.Validation("catalogYear must be a number"))
			return
		}
		f.CatalogYear = year
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.DeptReqs.List(ctx, f)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

func (h *Handler) HandleCreateDeptReq(w http.ResponseWriter, r *http.Request) {
	var in deptReqRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.table(ctx, in)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	t, err = h.DeptReqs.Create(ctx, t)
	if err != nil {
		h.Errors.Fail(w, r, deptReqConflict(err))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentRequirementChanged, actor(r), nil, map[string]string{
		"requirement_id": t.ID.Hex(), "department_id": t.DepartmentID.Hex(), "catalog_year": strconv.Itoa(t.CatalogYear),
	})
	jsonapi.Created(w, t)
}

func (h *Handler) HandleUpdateDeptReq(w http.ResponseWriter, r *http.Request) {
	var in deptReqRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.table(ctx, in)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	t, err = h.DeptReqs.Update(ctx, id, t)
	if err != nil {
		h.Errors.Fail(w, r, notFound(deptReqConflict(err), "Requirement table"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentRequirementChanged, actor(r), nil, map[string]string{
		"requirement_id": id.Hex(), "department_id": t.DepartmentID.Hex(), "catalog_year": strconv.Itoa(t.CatalogYear),
	})
	jsonapi.OK(w, t)
}

func (h *Handler) HandleDeleteDeptReq(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.DeptReqs.Delete(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Errors.Fail(w, r, apperr.NotFound("Requirement table not found"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentRequirementDeleted, actor(r), nil, map[string]string{"requirement_id": id.Hex()})
	jsonapi.Message(w, nil, "Requirement table deleted")
}
