// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Handler struct {
	Client  *mongo.Client
	Log     *zap.Logger
	started time.Time
	now     func() time.Time
}

func NewHandler(client *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Log:     logger,
		started: time.Now(),
		now:     time.Now,
	}
}

// Status is the data of a health response.
type Status struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// Serve handles GET /health. A failed Mongo ping answers 503 with
// status "error" so load balancers take the instance out of rotation.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	now := h.now().UTC()
	st := Status{
		Status:    "ok",
		Database:  "connected",
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
		Timestamp: now,
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		st.Status = "error"
		st.Database = "disconnected"
		jsonapi.Write(w, http.StatusServiceUnavailable, jsonapi.Envelope{
			Data:  st,
			Error: "Database unavailable",
			Code:  "db_unavailable",
		})
		return
	}
	jsonapi.OK(w, st)
}
