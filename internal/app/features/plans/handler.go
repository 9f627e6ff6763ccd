// internal/app/features/plans/handler.go
//
// Package plans serves the plan-mutation endpoints. Members and guests share
// every operation; they differ only in where the plan is stored and which
// courses they can place, which a Resolver decides per request.
package plans

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	planstore "github.com/hwankr/courseplanner/internal/app/store/plans"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/guest"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/planner"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CatalogFunc returns the courses the caller may place, keyed by course id.
// Ids the caller cannot see are left out.
type CatalogFunc func(ctx context.Context, ids []string) (map[string]models.Course, error)

// Session is the plan storage and catalog bound to one request.
type Session struct {
	Storage planner.Storage
	Catalog CatalogFunc
}

// Resolver builds the Session for a request.
type Resolver func(w http.ResponseWriter, r *http.Request) (Session, error)

type Handler struct {
	Resolve Resolver
	Errors  *jsonapi.Reporter
	Log     *zap.Logger
}

// NewHandler returns the handler for signed-in users. Plans live in Mongo;
// the {id} URL parameter, when routed, must name the caller's plan.
func NewHandler(db *mongo.Database, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	plans := planstore.New(db)
	courses := coursestore.New(db)
	return &Handler{
		Resolve: func(w http.ResponseWriter, r *http.Request) (Session, error) {
			uid, err := authz.CurrentUserID(r)
			if err != nil {
				return Session{}, err
			}
			a := &planstore.Adapter{Store: plans, UserID: uid}
			if raw := chi.URLParam(r, "id"); raw != "" {
				pid, err := inputval.ParseObjectID("id", raw)
				if err != nil {
					return Session{}, err
				}
				a.PlanID = &pid
			}
			return Session{Storage: a, Catalog: memberCatalog(courses, uid)}, nil
		},
		Errors: errs,
		Log:    logger,
	}
}

// NewGuestHandler returns the handler for guest mode. Plans live in the
// guest-plans cookie; guest custom courses join the official catalog.
func NewGuestHandler(db *mongo.Database, guests *guest.Store, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	courses := coursestore.New(db)
	return &Handler{
		Resolve: func(w http.ResponseWriter, r *http.Request) (Session, error) {
			return Session{
				Storage: guests.PlanStorage(w, r),
				Catalog: GuestCatalog(courses, guests.Courses(r)),
			}, nil
		},
		Errors: errs,
		Log:    logger,
	}
}

func memberCatalog(courses *coursestore.Store, uid primitive.ObjectID) CatalogFunc {
	return func(ctx context.Context, ids []string) (map[string]models.Course, error) {
		cat, err := courses.Catalog(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id, c := range cat {
			if !c.IsOfficial() && *c.CreatedBy != uid {
				delete(cat, id)
			}
		}
		return cat, nil
	}
}

// GuestCatalog serves official courses plus the given guest custom courses.
func GuestCatalog(courses *coursestore.Store, own []guest.GuestCourse) CatalogFunc {
	return func(ctx context.Context, ids []string) (map[string]models.Course, error) {
		cat, err := courses.Catalog(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id, c := range cat {
			if !c.IsOfficial() {
				delete(cat, id)
			}
		}
		for _, gc := range own {
			cat[gc.ID] = gc.Course()
		}
		return cat, nil
	}
}

// classify maps planner and store errors onto API errors.
func classify(err error) error {
	switch {
	case errors.Is(err, planner.ErrSemesterNotFound):
		return apperr.NotFound("Semester not found")
	case errors.Is(err, planner.ErrCourseNotFound):
		return apperr.NotFound("Course is not in that semester")
	case errors.Is(err, planstore.ErrNotFound):
		return apperr.NotFound("Plan not found")
	case errors.Is(err, guest.ErrTooLarge):
		return apperr.Rule("guest_storage_full", guest.ErrTooLarge.Error())
	}
	return err
}
