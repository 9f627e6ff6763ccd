// internal/app/features/profile/onboarding.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hwankr/courseplanner/internal/app/store/accounts"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/onboarding"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type onboardingRequest struct {
	DepartmentID          string                    `json:"departmentId" validate:"required,objectid"`
	SecondaryDepartmentID string                    `json:"secondaryDepartmentId" validate:"omitempty,objectid"`
	MajorType             string                    `json:"majorType" validate:"required,major_type"`
	EnrollmentYear        int                       `json:"enrollmentYear" validate:"required,gte=1990,lte=2100"`
	Requirement           inputval.RequirementInput `json:"requirement"`
}

// HandleOnboarding stores the profile and the graduation requirement in one
// step and marks onboarding complete.
func (h *Handler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	var in onboardingRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if in.Requirement.MajorType != in.MajorType {
		h.Errors.Fail(w, r, apperr.Validation("requirement majorType must match majorType"))
		return
	}

	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ob := userstore.Onboarding{
		MajorType:      in.MajorType,
		EnrollmentYear: in.EnrollmentYear,
	}
	ob.DepartmentID, _ = primitive.ObjectIDFromHex(strings.TrimSpace(in.DepartmentID))
	if in.MajorType != models.MajorSingle && in.SecondaryDepartmentID != "" {
		oid, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.SecondaryDepartmentID))
		ob.SecondaryDepartmentID = &oid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.checkDepartments(ctx, ob.MajorType, ob.DepartmentID, ob.SecondaryDepartmentID); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	var req models.GraduationRequirement
	in.Requirement.Apply(&req)

	u, err := h.Accounts.CompleteOnboarding(ctx, uid, ob, req)
	switch {
	case errors.Is(err, accounts.ErrAlreadyOnboarded):
		h.Errors.Fail(w, r, apperr.New(apperr.KindConflict, onboarding.CodeCompleted, "Onboarding has already been completed"))
		return
	case err == mongo.ErrNoDocuments:
		h.Errors.Fail(w, r, apperr.NotFound("User not found"))
		return
	case err != nil:
		h.Errors.Fail(w, r, err)
		return
	}

	h.reissue(w, u)
	h.AuditLog.Auth(ctx, r, audit.EventOnboardingCompleted, u.ID, map[string]string{
		"major_type":      u.MajorType,
		"enrollment_year": strconv.Itoa(u.EnrollmentYear),
	})
	h.Log.Info("onboarding completed", zap.String("user_id", u.ID.Hex()))

	jsonapi.Message(w, viewOf(u), "Onboarding completed")
}
