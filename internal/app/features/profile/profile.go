// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/users/me                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.loadMe(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, viewOf(u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/users/me                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// updateRequest carries the editable profile fields. Absent fields are left
// alone; an empty secondaryDepartmentId removes the second department.
type updateRequest struct {
	Name                  *string `json:"name" validate:"omitempty,notblank,max=100"`
	DepartmentID          *string `json:"departmentId" validate:"omitempty,objectid"`
	SecondaryDepartmentID *string `json:"secondaryDepartmentId"`
	MajorType             *string `json:"majorType" validate:"omitempty,major_type"`
	EnrollmentYear        *int    `json:"enrollmentYear" validate:"omitempty,gte=1990,lte=2100"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.loadMe(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	upd := userstore.ProfileUpdate{Name: in.Name, MajorType: in.MajorType, EnrollmentYear: in.EnrollmentYear}
	majorType := u.MajorType
	if in.MajorType != nil {
		majorType = *in.MajorType
	}
	primary := u.DepartmentID
	if in.DepartmentID != nil {
		oid, _ := primitive.ObjectIDFromHex(strings.TrimSpace(*in.DepartmentID))
		primary = &oid
		upd.DepartmentID = &oid
	}
	secondary := u.SecondaryDepartmentID
	if in.SecondaryDepartmentID != nil {
		if s := strings.TrimSpace(*in.SecondaryDepartmentID); s == "" {
			secondary = nil
		} else {
			oid, err := inputval.ParseObjectID("secondaryDepartmentId", s)
			if err != nil {
				h.Errors.Fail(w, r, err)
				return
			}
			secondary = &oid
		}
	}
	if majorType == models.MajorSingle {
		secondary = nil
	}
	if secondary == nil {
		upd.ClearSecondary = u.SecondaryDepartmentID != nil
	} else {
		upd.SecondaryDepartmentID = secondary
	}

	if primary != nil {
		if err := h.checkDepartments(ctx, majorType, *primary, secondary); err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
	} else if in.MajorType != nil || in.SecondaryDepartmentID != nil {
		h.Errors.Fail(w, r, apperr.Validation("Choose a department first"))
		return
	}

	updated, err := h.Users.UpdateProfile(ctx, u.ID, upd)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	h.reissue(w, updated)
	jsonapi.Message(w, viewOf(updated), "Profile updated")
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/users/me                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, err := h.loadMe(ctx, r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if err := h.Users.EnsureNotLastAdmin(ctx, u); err != nil {
		if errors.Is(err, userstore.ErrLastAdmin) {
			h.Errors.Fail(w, r, apperr.Rule("last_admin", "The last admin account cannot be deleted"))
			return
		}
		h.Errors.Fail(w, r, err)
		return
	}

	if err := h.Accounts.DeleteAccount(ctx, u.ID); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	h.SessionMgr.Clear(w)
	h.AuditLog.Auth(ctx, r, audit.EventAccountDeleted, u.ID, map[string]string{"email": u.Email})
	h.Log.Info("account deleted", zap.String("user_id", u.ID.Hex()))

	jsonapi.Message(w, nil, "Account deleted")
}
