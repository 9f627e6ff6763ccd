// internal/app/features/admin/feedback.go
package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	feedbackstore "github.com/hwankr/courseplanner/internal/app/store/feedback"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/htmlsanitize"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/paging"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

// FeedbackPage is an offset-paged feedback list.
type FeedbackPage struct {
	Items []models.Feedback `json:"items"`
	Total int64             `json:"total"`
}

// ServeFeedback lists feedback newest first.
//
// Query: status, category, limit, offset.
func (h *Handler) ServeFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := feedbackstore.Filter{
		Status:   normalize.Enum(q.Get("status")),
		Category: normalize.Enum(q.Get("category")),
	}
	if f.Status != "" && !models.IsValidFeedbackStatus(f.Status) {
		h.Errors.Fail(w, r, apperr.Validation("status must be one of pending, in_progress, resolved, closed"))
		return
	}
	if f.Category != "" && !models.IsValidFeedbackCategory(f.Category) {
		h.Errors.Fail(w, r, apperr.Validation("category must be one of bug, feature, question, other"))
		return
	}
	pg := paging.ParseOffset(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, total, err := h.Feedback.List(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, FeedbackPage{Items: items, Total: total})
}

type feedbackUpdateRequest struct {
	Status *string `json:"status" validate:"omitempty,feedback_status"`
	Reply  *string `json:"reply" validate:"omitempty,max=2000"`
}

// HandleUpdateFeedback sets status and/or reply. A reply notifies the submitter.
func (h *Handler) HandleUpdateFeedback(w http.ResponseWriter, r *http.Request) {
	var in feedbackUpdateRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if in.Status == nil && in.Reply == nil {
		h.Errors.Fail(w, r, apperr.Validation("status or reply is required"))
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	upd := feedbackstore.AdminUpdate{Status: in.Status}
	if in.Reply != nil {
		reply := htmlsanitize.StripTags(*in.Reply)
		if reply == "" {
			h.Errors.Fail(w, r, apperr.Validation("reply cannot be blank"))
			return
		}
		upd.Reply = &reply
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	fb, err := h.Feedback.Update(ctx, id, upd)
	if err != nil {
		h.Errors.Fail(w, r, notFound(err, "Feedback"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventFeedbackUpdated, actor(r), &fb.UserID, map[string]string{
		"feedback_id": id.Hex(), "status": fb.Status, "replied": strconv.FormatBool(in.Reply != nil),
	})
	jsonapi.OK(w, fb)
}
