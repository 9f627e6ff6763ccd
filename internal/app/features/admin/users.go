// internal/app/features/admin/users.go
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/store/accounts"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/paging"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	errLastAdmin  = apperr.Rule("last_admin", "The last admin cannot be demoted or deleted")
	errSelfDelete = apperr.Rule("self_delete", "Use account settings to delete your own account")
)

// ServeUsers lists users by name, keyset paged.
//
// Query: role, q (name prefix), before, after.
func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := userstore.ListFilter{
		Role:   normalize.Role(q.Get("role")),
		Search: normalize.QueryParam(q.Get("q")),
	}
	if f.Role != "" && !models.IsValidRole(f.Role) {
		h.Errors.Fail(w, r, apperr.Validation("role must be one of student, admin"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Users.List(ctx, f, paging.ParseKeyset(r))
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, page)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// HandleSetRole changes a user's role. The last admin cannot be demoted.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var in roleRequest
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

	u, err := h.Users.SetRole(ctx, id, in.Role)
	switch {
	case errors.Is(err, userstore.ErrLastAdmin):
		h.Errors.Fail(w, r, errLastAdmin)
		return
	case err != nil:
		h.Errors.Fail(w, r, notFound(err, "User"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventRoleChanged, actor(r), &id, map[string]string{"role": in.Role})
	h.invalidateStats()
	jsonapi.Message(w, u, "Role updated")
}

// HandleDeleteUser removes a user and everything the user owns.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, err := h.Accounts.RemoveUser(ctx, actor(r), id)
	switch {
	case errors.Is(err, accounts.ErrSelfDelete):
		h.Errors.Fail(w, r, errSelfDelete)
		return
	case errors.Is(err, userstore.ErrLastAdmin):
		h.Errors.Fail(w, r, errLastAdmin)
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		h.Errors.Fail(w, r, apperr.NotFound("User not found"))
		return
	case err != nil:
		h.Errors.Fail(w, r, err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventUserDeleted, actor(r), &id, map[string]string{"email": u.Email})
	h.invalidateStats()
	h.Log.Info("user deleted by admin", zap.String("user_id", id.Hex()), zap.String("actor_id", actor(r).Hex()))
	jsonapi.Message(w, nil, "User deleted")
}
