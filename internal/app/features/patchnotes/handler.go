// internal/app/features/patchnotes/handler.go
package patchnotes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	patchnotestore "github.com/hwankr/courseplanner/internal/app/store/patchnotes"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ListLimit caps the published changelog.
const ListLimit = 50

type Handler struct {
	Notes  *patchnotestore.Store
	Errors *jsonapi.Reporter
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Notes:  patchnotestore.New(db),
		Errors: errs,
		Log:    logger,
	}
}

// NoteView is a published note with the caller's read flag.
type NoteView struct {
	models.PatchNote
	Read bool `json:"read"`
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	notes, err := h.Notes.ListPublished(ctx, ListLimit)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	read, err := h.Notes.ReadIDs(ctx, uid)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	out := make([]NoteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteView{PatchNote: n, Read: read[n.ID]})
	}
	jsonapi.OK(w, out)
}

func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	id, err := inputval.ParseObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ok, err := h.Notes.IsPublished(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if !ok {
		h.Errors.Fail(w, r, apperr.NotFound("Patch note not found"))
		return
	}
	if err := h.Notes.MarkRead(ctx, uid, id); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.Message(w, nil, "Marked as read")
}

func (h *Handler) HandleReadAll(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Notes.MarkAllRead(ctx, uid)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.Message(w, map[string]int{"marked": n}, "All patch notes marked as read")
}
