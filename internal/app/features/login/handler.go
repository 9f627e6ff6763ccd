// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/auditlog"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/guest"
	"github.com/hwankr/courseplanner/internal/app/system/inputval"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/onboarding"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Lockout defaults, used when the config leaves them at zero.
const (
	DefaultMaxFailures = 5
	DefaultLockout     = 15 * time.Minute
)

var errInvalidCredentials = apperr.Unauthorized("Invalid email or password")

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Guests     *guest.Store
	Errors     *jsonapi.Reporter
	Log        *zap.Logger

	MaxFailures int
	Lockout     time.Duration

	now func() time.Time
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, guests *guest.Store, errs *jsonapi.Reporter, maxFailures int, lockout time.Duration, logger *zap.Logger) *Handler {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &Handler{
		Users:       userstore.New(db),
		SessionMgr:  sessionMgr,
		AuditLog:    audit,
		Guests:      guests,
		Errors:      errs,
		Log:         logger,
		MaxFailures: maxFailures,
		Lockout:     lockout,
		now:         time.Now,
	}
}

// SessionView is returned by register, login and session.
type SessionView struct {
	Authenticated   bool              `json:"authenticated"`
	User            *auth.SessionUser `json:"user"`
	OnboardingState string            `json:"onboardingState,omitempty"`
	Guest           bool              `json:"guest"`
}

func sessionView(u *auth.SessionUser) SessionView {
	return SessionView{
		Authenticated:   true,
		User:            u,
		OnboardingState: onboarding.SessionState(u),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/register                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type registerRequest struct {
	Email    string `json:"email" validate:"required,email_strict"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		AuthMethod:   models.AuthPassword,
		Role:         models.RoleStudent,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			h.Errors.Fail(w, r, apperr.New(apperr.KindConflict, "email_taken", "An account with this email already exists"))
			return
		}
		h.Errors.Fail(w, r, err)
		return
	}

	su := userstore.SessionUser(u)
	if err := h.SessionMgr.Issue(w, su); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if h.Guests != nil {
		h.Guests.Clear(w)
	}
	h.AuditLog.Auth(ctx, r, audit.EventRegistered, u.ID, map[string]string{"email": u.Email})
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	jsonapi.Created(w, sessionView(&su))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	email := normalize.Email(in.Email)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err == mongo.ErrNoDocuments {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, email, "user not found")
		h.Errors.Fail(w, r, errInvalidCredentials)
		return
	}
	if err != nil {
		h.Errors.Fail(w, r, err)
		return
	}

	now := h.now()
	if u.IsLocked(now) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedLocked, &u.ID, email, "account locked")
		h.Errors.Fail(w, r, apperr.New(apperr.KindForbidden, "account_locked",
			"Too many failed sign-in attempts. Try again in a few minutes."))
		return
	}
	if u.PasswordHash == "" {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, email, "no password set")
		h.Errors.Fail(w, r, apperr.New(apperr.KindUnauthorized, "use_google", "This account signs in with Google"))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		locked, lerr := h.Users.RecordLoginFailure(ctx, u.ID, h.MaxFailures, h.Lockout, now)
		if lerr != nil {
			h.Log.Warn("record login failure", zap.Error(lerr), zap.String("user_id", u.ID.Hex()))
		}
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, email, "wrong password")
		if locked {
			h.AuditLog.Auth(ctx, r, audit.EventAccountLocked, u.ID, map[string]string{"lockout": h.Lockout.String()})
		}
		h.Errors.Fail(w, r, errInvalidCredentials)
		return
	}

	if err := h.Users.RecordLoginSuccess(ctx, u.ID, now); err != nil {
		h.Log.Warn("record login success", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}

	su := userstore.SessionUser(*u)
	if err := h.SessionMgr.Issue(w, su); err != nil {
		h.Errors.Fail(w, r, err)
		return
	}
	if h.Guests != nil {
		h.Guests.Clear(w)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, models.AuthPassword)

	jsonapi.OK(w, sessionView(&su))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/session                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		jsonapi.OK(w, sessionView(u))
		return
	}
	jsonapi.OK(w, SessionView{Guest: guest.Active(r)})
}
