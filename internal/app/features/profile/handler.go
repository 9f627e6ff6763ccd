// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/store/accounts"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/auditlog"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/authz"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/app/system/onboarding"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the self-service account endpoints under /api/users/me.
type Handler struct {
	Users       *userstore.Store
	Departments *departmentstore.Store
	Accounts    *accounts.Service
	SessionMgr  *auth.SessionManager
	AuditLog    *auditlog.Logger
	Errors      *jsonapi.Reporter
	Log         *zap.Logger
}

// NewHandler constructs a Handler. client may be nil, in which case the
// multi-collection writes run without a transaction.
func NewHandler(client *mongo.Client, db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, errs *jsonapi.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Departments: departmentstore.New(db),
		Accounts:    accounts.New(client, db, logger),
		SessionMgr:  sessionMgr,
		AuditLog:    audit,
		Errors:      errs,
		Log:         logger,
	}
}

// View is the signed-in user's profile.
type View struct {
	models.User
	HasPassword     bool   `json:"hasPassword"`
	OnboardingState string `json:"onboardingState"`
}

func viewOf(u *models.User) View {
	return View{
		User:            *u,
		HasPassword:     u.PasswordHash != "",
		OnboardingState: onboarding.State(*u),
	}
}

// loadMe returns the stored record of the signed-in user.
func (h *Handler) loadMe(ctx context.Context, r *http.Request) (*models.User, error) {
	uid, err := authz.CurrentUserID(r)
	if err != nil {
		return nil, err
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("User not found")
	}
	return u, err
}

// reissue refreshes the session cookie after the profile changes.
func (h *Handler) reissue(w http.ResponseWriter, u *models.User) {
	if err := h.SessionMgr.Issue(w, userstore.SessionUser(*u)); err != nil {
		h.Log.Warn("re-issue session", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
}

// checkDepartments verifies the department ids exist and are consistent
// with the major type: double and minor need a second, different department.
func (h *Handler) checkDepartments(ctx context.Context, majorType string, primary primitive.ObjectID, secondary *primitive.ObjectID) error {
	if ok, err := h.Departments.Exists(ctx, primary); err != nil {
		return err
	} else if !ok {
		return apperr.Validation("Department not found")
	}

	if majorType == models.MajorSingle || majorType == "" {
		return nil
	}
	if secondary == nil {
		return apperr.Validation("A second department is required for a double major or minor")
	}
	if *secondary == primary {
		return apperr.Validation("The second department must differ from the primary department")
	}
	if ok, err := h.Departments.Exists(ctx, *secondary); err != nil {
		return err
	} else if !ok {
		return apperr.Validation("Second department not found")
	}
	return nil
}
