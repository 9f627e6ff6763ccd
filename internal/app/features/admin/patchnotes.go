// internal/app/features/admin/patchnotes.go
package admin

import (
	"context"
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	patchnotestore "github.com/hwankr/courseplanner/internal/app/store/patchnotes"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/htmlsanitize"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

type patchNoteRequest struct {
	Version   string `json:"version" validate:"required,notblank,max=30"`
	Title     string `json:"title" validate:"required,notblank,max=200"`
	Content   string `json:"content" validate:"required,notblank,max=20000"`
	Published bool   `json:"published"`
}

type publishRequest struct {
	Published bool `json:"published"`
}

// ServePatchNotes lists drafts and published notes, newest first.
func (h *Handler) ServePatchNotes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Notes.ListAll(ctx)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

func (h *Handler) HandleCreatePatchNote(w http.ResponseWriter, r *http.Request) {
	var in patchNoteRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	content := htmlsanitize.PrepareContent(in.Content)
	if content == "" {
		h.Errors.Fail(w, r, apperr.Validation("content is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notes.Create(ctx, models.PatchNote{
		Version:   in.Version,
		Title:     in.Title,
		Content:   content,
		Published: in.Published,
		CreatedBy: actor(r),
	})
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventPatchNoteSaved, actor(r), nil, map[string]string{"patch_note_id": n.ID.Hex(), "version": n.Version})
	jsonapi.Created(w, n)
}

func (h *Handler) HandleUpdatePatchNote(w http.ResponseWriter, r *http.Request) {
	var in patchNoteRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	content := htmlsanitize.PrepareContent(in.Content)
	if content == "" {
		h.Errors.Fail(w, r, apperr.Validation("content is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notes.Update(ctx, id, patchnotestore.Update{Version: &in.Version, Title: &in.Title, Content: &content})
	if err != nil {
		h.Errors.Fail(w, r, notFound(err, "Patch note"))
		return
	}
	if n.Published != in.Published {
		if n, err = h.Notes.SetPublished(ctx, id, in.Published); err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
	}

	h.AuditLog.Admin(ctx, r, audit.EventPatchNoteSaved, actor(r), nil, map[string]string{"patch_note_id": id.Hex(), "version": n.Version})
	jsonapi.OK(w, n)
}

// HandlePublish publishes or unpublishes a note.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var in publishRequest
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

	n, err := h.Notes.SetPublished(ctx, id, in.Published)
	if err != nil {
		h.Errors.Fail(w, r, notFound(err, "Patch note"))
		return
	}

	event := audit.EventPatchNotePublished
	if !in.Published {
		event = audit.EventPatchNoteSaved
	}
	h.AuditLog.Admin(ctx, r, event, actor(r), nil, map[string]string{"patch_note_id": id.Hex(), "version": n.Version})
	jsonapi.OK(w, n)
}

func (h *Handler) HandleDeletePatchNote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notes.Delete(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Errors.Fail(w, r, apperr.NotFound("Patch note not found"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventPatchNoteDeleted, actor(r), nil, map[string]string{"patch_note_id": id.Hex()})
	jsonapi.Message(w, nil, "Patch note deleted")
}
