// internal/app/features/admin/handler.go
//
// Package admin serves /api/admin: user management and curation of the
// shared reference data (catalog, departments, requirement tables, patch
// notes, academic calendar), feedback triage, statistics and the audit log.
// Every route requires the admin role.
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	eventstore "github.com/hwankr/courseplanner/internal/app/store/academicevents"
	"github.com/hwankr/courseplanner/internal/app/store/accounts"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	deptreqstore "github.com/hwankr/courseplanner/internal/app/store/deptreqs"
	feedbackstore "github.com/hwankr/courseplanner/internal/app/store/feedback"
	patchnotestore "github.com/hwankr/courseplanner/internal/app/store/patchnotes"
	planstore "github.com/hwankr/courseplanner/internal/app/store/plans"
	"github.com/hwankr/courseplanner/internal/app/store/queries/statistics"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/auditlog"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users       *userstore.Store
	Accounts    *accounts.Service
	Courses     *coursestore.Store
	Plans       *planstore.Store
	Departments *departmentstore.Store
	DeptReqs    *deptreqstore.Store
	Feedback    *feedbackstore.Store
	Notes       *patchnotestore.Store
	Events      *eventstore.Store
	Audit       *audit.Store
	Stats       *statistics.Service

	AuditLog *auditlog.Logger
	Errors   *jsonapi.Reporter
	Log      *zap.Logger
}

func NewHandler(client *mongo.Client, db *mongo.Database, stats *statistics.Service, al *auditlog.Logger, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Accounts:    accounts.New(client, db, logger),
		Courses:     coursestore.New(db),
		Plans:       planstore.New(db),
		Departments: departmentstore.New(db),
		DeptReqs:    deptreqstore.New(db),
		Feedback:    feedbackstore.New(db),
		Notes:       patchnotestore.New(db),
		Events:      eventstore.New(db),
		Audit:       audit.New(db),
		Stats:       stats,
		AuditLog:    al,
		Errors:      errs,
		Log:         logger,
	}
}

// actor returns the acting admin's id.
func actor(r *http.Request) primitive.ObjectID {
	uid, _ := authz.CurrentUserID(r)
	return uid
}

func idParam(r *http.Request) (primitive.ObjectID, error) {
	return inputval.ParseObjectID("id", chi.URLParam(r, "id"))
}

// notFound maps mongo.ErrNoDocuments onto a 404 naming what.
func notFound(err error, what string) error {
	if err == mongo.ErrNoDocuments {
		return apperr.NotFound(what + " not found")
	}
	return err
}

// invalidateStats drops memoized statistics after catalog or user changes.
func (h *Handler) invalidateStats() {
	if h.Stats == nil {
		return
	}
	if n := h.Stats.Invalidate(); n > 0 {
		h.Log.Debug("statistics cache invalidated", zap.Int("entries", n))
	}
}
