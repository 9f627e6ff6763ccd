// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/store/queries/notifications"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Service *notifications.Service
	Errors  *jsonapi.Reporter
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Service: notifications.New(db),
		Errors:  errs,
		Log:     logger,
	}
}

func viewer(r *http.Request) (notifications.Viewer, error) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		return notifications.Viewer{}, err
	}
	return notifications.Viewer{UserID: uid, IsAdmin: authz.IsAdmin(r)}, nil
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	v, err := viewer(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Service.Get(ctx, v)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

type readRequest struct {
	Type string `json:"type" validate:"required,oneof=feedback feedback_reply patch_note"`
	ID   string `json:"id" validate:"required,objectid"`
}

func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	var in readRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	v, err := viewer(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	id, err := inputval.ParseObjectID("id", in.ID)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ok, err := h.Service.MarkRead(ctx, v, in.Type, id)
	if err == notifications.ErrUnknownKind {
		err = apperr.Validation("type must be one of feedback, feedback_reply, patch_note")
	}
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if !ok {
		h.Errors.Fail(w, r, apperr.NotFound("Notification not found"))
		return
	}
	jsonapi.Message(w, nil, "Notification marked as read")
}

func (h *Handler) HandleReadAll(w http.ResponseWriter, r *http.Request) {
	v, err := viewer(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Service.MarkAllRead(ctx, v); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.Message(w, nil, "All notifications marked as read")
}
