// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	academiceventsfeature "github.com/hwankr/courseplanner/internal/app/features/academicevents"
	adminfeature "github.com/hwankr/courseplanner/internal/app/features/admin"
	authgooglefeature "github.com/hwankr/courseplanner/internal/app/features/authgoogle"
	coursesfeature "github.com/hwankr/courseplanner/internal/app/features/courses"
	departmentsfeature "github.com/hwankr/courseplanner/internal/app/features/departments"
	feedbackfeature "github.com/hwankr/courseplanner/internal/app/features/feedback"
	guestmodefeature "github.com/hwankr/courseplanner/internal/app/features/guestmode"
	healthfeature "github.com/hwankr/courseplanner/internal/app/features/health"
	loginfeature "github.com/hwankr/courseplanner/internal/app/features/login"
	logoutfeature "github.com/hwankr/courseplanner/internal/app/features/logout"
	notificationsfeature "github.com/hwankr/courseplanner/internal/app/features/notifications"
	patchnotesfeature "github.com/hwankr/courseplanner/internal/app/features/patchnotes"
	plansfeature "github.com/hwankr/courseplanner/internal/app/features/plans"
	profilefeature "github.com/hwankr/courseplanner/internal/app/features/profile"
	requirementsfeature "github.com/hwankr/courseplanner/internal/app/features/requirements"
	statisticsfeature "github.com/hwankr/courseplanner/internal/app/features/statistics"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/store/queries/statistics"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/auditlog"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/guest"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/onboarding"
	"github.com/hwankr/courseplanner/internal/app/system/originguard"
	"github.com/hwankr/courseplanner/internal/app/system/ratelimit"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root router.
//
// Every request passes through LoadSessionUser, so handlers can read the
// signed-in user with auth.CurrentUser(r). Under /api, writes must come
// from an allowed origin (OAuth redirects under /api/auth are exempt) and
// count against the per-IP write limit. Feature routers are mounted behind
// the guard their audience needs: none, signed in, onboarded, or admin.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	rt := currentRuntime(appCfg, logger)

	// Secure cookies outside dev and test.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.JWTSecret, appCfg.SessionCookieName, appCfg.SessionDomain,
		appCfg.SessionTTL, appCfg.SessionRefreshAfter, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Role changes and deletions take effect on the next request.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	guests := guest.New([]byte(appCfg.GuestCookieKey), secure)
	errs := &jsonapi.Reporter{Log: logger, Tracker: rt.tracker}
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Auth: appCfg.AuditLogAuth, Admin: appCfg.AuditLogAdmin})
	stats := statistics.New(db, rt.cache)
	guard := originguard.New(appCfg.AllowedOrigins, "/api/auth/")
	signedIn := sessionMgr.RequireSignedIn

	r := chi.NewRouter()
	r.Use(sessionMgr.LoadSessionUser)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.Write(w, http.StatusNotFound, jsonapi.Envelope{Error: "Not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.Write(w, http.StatusMethodNotAllowed, jsonapi.Envelope{Error: "Method not allowed", Code: "method_not_allowed"})
	})

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(r chi.Router) {
		r.Use(guard.Middleware)
		r.Use(rt.limits.Middleware(ratelimit.TypeAPIWrite, true))

		// Authentication
		loginHandler := loginfeature.NewHandler(db, sessionMgr, al, guests, errs, appCfg.LoginMaxFailures, appCfg.LoginLockout, logger)
		logoutHandler := logoutfeature.NewHandler(sessionMgr, al, logger)
		googleHandler := authgooglefeature.NewHandler(db, sessionMgr, al, guests,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Route("/auth", func(r chi.Router) {
			r.Use(rt.limits.Middleware(ratelimit.TypeAuth, true))
			r.Mount("/logout", logoutfeature.Routes(logoutHandler))
			r.Mount("/google", authgooglefeature.Routes(googleHandler))
			r.Mount("/", loginfeature.Routes(loginHandler))
		})

		// Public reference data
		coursesHandler := coursesfeature.NewHandler(db, errs, logger)
		r.Mount("/courses", coursesfeature.Routes(coursesHandler, signedIn))

		deptHandler := departmentsfeature.NewHandler(db, errs, logger)
		r.Mount("/departments", departmentsfeature.Routes(deptHandler))
		r.Mount("/department-requirements", departmentsfeature.RequirementRoutes(deptHandler))

		// Guest mode
		guestHandler := guestmodefeature.NewHandler(db, guests, errs, logger)
		guestPlans := plansfeature.NewGuestHandler(db, guests, errs, logger)
		r.Mount("/guest", guestmodefeature.Routes(guestHandler, guestPlans))

		// Signed-in members
		r.Group(func(r chi.Router) {
			r.Use(signedIn)

			profileHandler := profilefeature.NewHandler(deps.MongoClient, db, sessionMgr, al, errs, logger)
			r.Mount("/users/me", profilefeature.Routes(profileHandler))

			reqHandler := requirementsfeature.NewHandler(db, errs, logger)
			r.Mount("/graduation-requirements", requirementsfeature.Routes(reqHandler))

			statsHandler := statisticsfeature.NewHandler(db, stats, errs, logger)
			r.Mount("/statistics", statisticsfeature.Routes(statsHandler))

			feedbackHandler := feedbackfeature.NewHandler(db, errs, logger)
			r.Mount("/feedback", feedbackfeature.Routes(feedbackHandler, rt.limits.Middleware(ratelimit.TypeFeedback, true)))

			notesHandler := patchnotesfeature.NewHandler(db, errs, logger)
			r.Mount("/patch-notes", patchnotesfeature.Routes(notesHandler))

			notifHandler := notificationsfeature.NewHandler(db, errs, logger)
			r.Mount("/notifications", notificationsfeature.Routes(notifHandler))

			eventsHandler := academiceventsfeature.NewHandler(db, errs, logger)
			r.Mount("/academic-events", academiceventsfeature.Routes(eventsHandler))

			r.Group(func(r chi.Router) {
				r.Use(onboarding.Require)
				plansHandler := plansfeature.NewHandler(db, errs, logger)
				r.Mount("/plans", plansfeature.Routes(plansHandler))
			})
		})

		// Administration
		r.Group(func(r chi.Router) {
			r.Use(sessionMgr.RequireRole(models.RoleAdmin))
			adminHandler := adminfeature.NewHandler(deps.MongoClient, db, stats, al, errs, logger)
			r.Mount("/admin", adminfeature.Routes(adminHandler))
		})
	})

	return r, nil
}
