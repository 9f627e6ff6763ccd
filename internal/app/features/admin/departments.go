// internal/app/features/admin/departments.go
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

type departmentRequest struct {
	Code    string `json:"code" validate:"required,notblank,max=20"`
	Name    string `json:"name" validate:"required,notblank,max=100"`
	College string `json:"college" validate:"required,notblank,max=100"`
	Active  *bool  `json:"active"`
}

func departmentConflict(err error) error {
	if errors.Is(err, departmentstore.ErrDuplicateDepartment) {
		return apperr.New(apperr.KindConflict, "duplicate_department", "A department with this code already exists")
	}
	return err
}

// ServeDepartments lists every department, retired ones included.
func (h *Handler) ServeDepartments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Departments.List(ctx, normalize.QueryParam(r.URL.Query().Get("college")), false)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

func (h *Handler) HandleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var in departmentRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d := models.Department{Code: in.Code, Name: in.Name, College: in.College, Active: true}
	if in.Active != nil {
		d.Active = *in.Active
	}
	d, err := h.Departments.Create(ctx, d)
	if err != nil {
		h.Errors.Fail(w, r, departmentConflict(err))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentCreated, actor(r), nil, map[string]string{"department_id": d.ID.Hex(), "code": d.Code})
	jsonapi.Created(w, d)
}

func (h *Handler) HandleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var in departmentRequest
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

	d, err := h.Departments.Update(ctx, id, departmentstore.Update{
		Code:    &in.Code,
		Name:    &in.Name,
		College: &in.College,
		Active:  in.Active,
	})
	if err != nil {
		h.Errors.Fail(w, r, notFound(departmentConflict(err), "Department"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentUpdated, actor(r), nil, map[string]string{"department_id": d.ID.Hex(), "code": d.Code})
	jsonapi.OK(w, d)
}

// HandleDeleteDepartment removes a department and its requirement tables.
// It is refused while courses or users still reference the department.
func (h *Handler) HandleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Departments.GetByID(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, notFound(err, "Department"))
		return
	}
	courses, err := h.Courses.CountByDepartment(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	users, err := h.Users.CountByDepartment(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if courses > 0 || users > 0 {
		h.Errors.Fail(w, r, apperr.New(apperr.KindConflict, "department_in_use",
			"The department is still referenced by courses or users; deactivate it instead"))
		return
	}

	if _, err := h.DeptReqs.DeleteByDepartment(ctx, id); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if _, err := h.Departments.Delete(ctx, id); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentDeleted, actor(r), nil, map[string]string{"department_id": id.Hex(), "code": d.Code})
	h.invalidateStats()
	jsonapi.Message(w, nil, "Department deleted")
}
