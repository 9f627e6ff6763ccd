// internal/app/features/feedback/handler.go
package feedback

import (
	"context"
	"net/http"

	feedbackstore "github.com/hwankr/courseplanner/internal/app/store/feedback"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/htmlsanitize"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Feedback *feedbackstore.Store
	Errors   *jsonapi.Reporter
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Feedback: feedbackstore.New(db),
		Errors:   errs,
		Log:      logger,
	}
}

type submitRequest struct {
	Category string `json:"category" validate:"required,feedback_category"`
	Content  string `json:"content" validate:"required,notblank,max=2000"`
}

// HandleSubmit stores a feedback item as plain text.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var in submitRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	content := htmlsanitize.StripTags(in.Content)
	if content == "" {
		h.Errors.Fail(w, r, apperr.Validation("content is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, _ := auth.CurrentUser(r)
	fb, err := h.Feedback.Create(ctx, models.Feedback{
		UserID:    uid,
		UserEmail: u.Email,
		Category:  in.Category,
		Content:   content,
	})
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	h.Log.Info("feedback submitted", zap.String("user_id", uid.Hex()), zap.String("category", fb.Category))
	jsonapi.Write(w, http.StatusCreated, jsonapi.Envelope{Success: true, Data: fb, Message: "Thank you for your feedback"})
}

// ServeMine lists the caller's feedback, newest first.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Feedback.ListByUser(ctx, uid)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}
