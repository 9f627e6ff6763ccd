// internal/app/features/admin/events.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/hwankr/courseplanner/internal/app/features/academicevents"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/htmlsanitize"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

type eventRequest struct {
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	Category    string    `json:"category" validate:"required,event_category"`
}

func (in eventRequest) event() models.AcademicEvent {
	return models.AcademicEvent{
		Title:       in.Title,
		Description: htmlsanitize.StripTags(in.Description),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Category:    in.Category,
	}
}

// ServeEvents lists events; ?year= and ?month= narrow the window.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := academicevents.Window(normalize.QueryParam(q.Get("year")), normalize.QueryParam(q.Get("month")))
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Events.ListRange(ctx, from, to)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, list)
}

func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e := in.event()
	e.CreatedBy = actor(r)
	e, err := h.Events.Create(ctx, e)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventAcademicEventSaved, actor(r), nil, map[string]string{"event_id": e.ID.Hex(), "title": e.Title})
	jsonapi.Created(w, e)
}

func (h *Handler) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventRequest
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

	e, err := h.Events.Update(ctx, id, in.event())
	if err != nil {
		h.Errors.Fail(w, r, notFound(err, "Event"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventAcademicEventSaved, actor(r), nil, map[string]string{"event_id": id.Hex(), "title": e.Title})
	jsonapi.OK(w, e)
}

func (h *Handler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Events.Delete(ctx, id)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if n == 0 {
		h.Errors.Fail(w, r, apperr.NotFound("Event not found"))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventAcademicEventDeleted, actor(r), nil, map[string]string{"event_id": id.Hex()})
	jsonapi.Message(w, nil, "Event deleted")
}
