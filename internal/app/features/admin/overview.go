// internal/app/features/admin/overview.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/paging"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
)

func (h *Handler) ServeOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	ov, err := h.Stats.Overview(ctx)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, ov)
}

// AuditPage is an offset-paged slice of the audit log.
type AuditPage struct {
	Items []audit.Event `json:"items"`
	Total int64         `json:"total"`
}

// ServeAudit queries audit events newest first.
//
// Query: category, eventType, userId, since, until (RFC 3339), limit, offset.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  normalize.Enum(q.Get("category")),
		EventType: normalize.Enum(q.Get("eventType")),
	}
	if raw := normalize.FilterID(q.Get("userId")); raw != "" {
		oid, err := inputval.ParseObjectID("userId", raw)
		if err != nil {
			h.Errors.Fail(w, r, err)
			return
		}
		f.UserID = &oid
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &f.StartTime}, {"until", &f.EndTime}} {
		raw := normalize.QueryParam(q.Get(p.name))
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Errors.Fail(w, r, apperr.Validation(p.name+" must be an RFC 3339 timestamp"))
			return
		}
		t = t.UTC()
		*p.dst = &t
	}
	pg := paging.ParseOffset(r)
	f.Limit, f.Offset = pg.Limit, pg.Offset

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	total, err := h.Audit.CountByFilter(ctx, f)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	items, err := h.Audit.Query(ctx, f)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	jsonapi.OK(w, AuditPage{Items: items, Total: total})
}
