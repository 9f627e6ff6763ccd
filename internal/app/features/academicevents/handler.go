// internal/app/features/academicevents/handler.go
package academicevents

import (
	"context"
	"net/http"
	"strconv"
	"time"

	eventstore "github.com/hwankr/courseplanner/internal/app/store/academicevents"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Events *eventstore.Store
	Errors *jsonapi.Reporter
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Events: eventstore.New(db),
		Errors: errs,
		Log:    logger,
	}
}

// Window turns the year/month query into the range [from, to). Both empty
// means no bound; month requires year.
func Window(yearRaw, monthRaw string) (from, to time.Time, err error) {
	if yearRaw == "" {
		if monthRaw != "" {
			return from, to, apperr.Validation("month requires year")
		}
		return from, to, nil
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil || year < 1990 || year > 2100 {
		return from, to, apperr.Validation("year must be between 1990 and 2100")
	}
	if monthRaw == "" {
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), nil
	}
	month, err := strconv.Atoi(monthRaw)
	if err != nil || month < 1 || month > 12 {
		return from, to, apperr.Validation("month must be between 1 and 12")
	}
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// ServeList lists events overlapping ?year= and optional ?month=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := Window(normalize.QueryParam(q.Get("year")), normalize.QueryParam(q.Get("month")))
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
