// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/store/oauthstate"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/auditlog"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/guest"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateTTL           = 10 * time.Minute
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler handles Google OAuth authentication.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	StateStore *oauthstate.Store
	Guests     *guest.Store
	Log        *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://planner.example.edu/api/auth/google/callback"
	BaseURL      string // where the UI lives; redirects after sign-in land here

	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	guests *guest.Store,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Handler{
		Users:        userstore.New(db),
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		StateStore:   oauthstate.New(db),
		Guests:       guests,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/api/auth/google/callback",
		BaseURL:      baseURL,
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.BaseURL+"/login?error="+code, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google                                                         |
| Redirects to Google's consent screen.                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.redirectToLogin(w, r, "google_not_configured")
		return
	}

	state := uuid.NewString()
	returnURL := safeReturn(r.URL.Query().Get("return"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google/callback                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", q.Get("error_description")))
		h.redirectToLogin(w, r, "google_denied")
		return
	}

	state := q.Get("state")
	if state == "" {
		h.redirectToLogin(w, r, "invalid_state")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	returnURL, valid, err := h.StateStore.Consume(ctx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.redirectToLogin(w, r, "invalid_state")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectToLogin(w, r, "invalid_code")
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.redirectToLogin(w, r, "token_exchange")
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.redirectToLogin(w, r, "user_info")
		return
	}

	u, created, err := h.findOrCreateUser(ctx, info)
	if err != nil {
		if errors.Is(err, errUnverifiedEmail) {
			h.redirectToLogin(w, r, "email_unverified")
			return
		}
		h.Log.Error("failed to resolve Google user", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	if err := h.Users.RecordLoginSuccess(ctx, u.ID, time.Now()); err != nil {
		h.Log.Warn("record login success", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	if err := h.SessionMgr.Issue(w, userstore.SessionUser(*u)); err != nil {
		h.Log.Error("failed to issue session", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}
	if h.Guests != nil {
		h.Guests.Clear(w)
	}

	if created {
		h.AuditLog.Auth(ctx, r, audit.EventRegistered, u.ID, map[string]string{"email": u.Email, "auth_method": models.AuthGoogle})
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, models.AuthGoogle)

	dest := returnURL
	if !u.OnboardingCompleted {
		dest = "/onboarding"
	}
	http.Redirect(w, r, h.BaseURL+dest, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

var errUnverifiedEmail = errors.New("google email not verified")

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, errors.New("user info is missing id or email")
	}
	return &info, nil
}

// findOrCreateUser resolves the Google account to a user:
//  1. a user already linked to this Google id
//  2. a user with the same (verified) email, which gets linked
//  3. a new student account
func (h *Handler) findOrCreateUser(ctx context.Context, info *googleUserInfo) (*models.User, bool, error) {
	u, err := h.Users.GetByGoogleID(ctx, info.ID)
	if err == nil {
		return u, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	if !info.EmailVerified {
		return nil, false, errUnverifiedEmail
	}

	email := normalize.Email(info.Email)
	u, err = h.Users.GetByEmail(ctx, email)
	if err == nil {
		if err := h.Users.LinkGoogle(ctx, u.ID, info.ID); err != nil {
			return nil, false, err
		}
		u.GoogleID = info.ID
		return u, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = email
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		}
	}
	created, err := h.Users.Create(ctx, models.User{
		Email:      email,
		Name:       name,
		AuthMethod: models.AuthGoogle,
		GoogleID:   info.ID,
		Role:       models.RoleStudent,
	})
	if err != nil {
		return nil, false, err
	}
	return &created, true, nil
}

// safeReturn keeps only same-site absolute paths.
func safeReturn(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return "/"
	}
	return s
}
