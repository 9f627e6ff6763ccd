// internal/app/features/profile/password.go
package profile

import (
	"context"
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"golang.org/x/crypto/bcrypt"
)

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// HandleChangePassword sets a new password. Accounts that already have one
// must confirm it; Google-only accounts may add a first password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordRequest
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
	if u.PasswordHash != "" {
		if in.CurrentPassword == "" {
			h.Errors.Fail(w, r, apperr.Validation("Current password is required"))
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.CurrentPassword)) != nil {
			h.Errors.Fail(w, r, apperr.New(apperr.KindValidation, "wrong_password", "Current password is incorrect"))
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if err := h.Users.SetPassword(ctx, u.ID, string(hash)); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	h.AuditLog.Auth(ctx, r, audit.EventPasswordChanged, u.ID, nil)

	jsonapi.Message(w, nil, "Password changed")
}
