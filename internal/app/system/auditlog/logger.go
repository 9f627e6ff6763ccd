// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/store/audit"
	"github.com/hwankr/courseplanner/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of audit events.
const (
	All = "all" // MongoDB + zap
	DB  = "db"
	Log = "log"
	Off = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls registration, login, logout, password and account events.
	Auth string
	// Admin controls catalog and user-management actions taken by admins.
	Admin string
}

// Logger writes audit events to the audit store and/or zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's destination.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := All
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == Off || setting == "" {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func requestEvent(r *http.Request, category, eventType string, success bool) audit.Event {
	ev := audit.Event{Category: category, EventType: eventType, Success: success}
	if r != nil {
		ev.IP = ratelimit.ClientIP(r)
		ev.UserAgent = r.UserAgent()
	}
	return ev
}

// --- Authentication Events ---

// Auth logs a successful auth event for userID.
func (l *Logger) Auth(ctx context.Context, r *http.Request, eventType string, userID primitive.ObjectID, details map[string]string) {
	ev := requestEvent(r, audit.CategoryAuth, eventType, true)
	ev.UserID = &userID
	ev.Details = details
	l.Log(ctx, ev)
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	l.Auth(ctx, r, audit.EventLoginSuccess, userID, map[string]string{"auth_method": authMethod})
}

// LoginFailed logs a failed login. userID is nil when no account matched.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email, reason string) {
	ev := requestEvent(r, audit.CategoryAuth, eventType, false)
	ev.UserID = userID
	ev.FailureReason = reason
	ev.Details = map[string]string{"email": email}
	l.Log(ctx, ev)
}

// Logout logs a logout. userIDHex may be empty for an expired session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	ev := requestEvent(r, audit.CategoryAuth, audit.EventLogout, true)
	if oid, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		ev.UserID = &oid
	}
	l.Log(ctx, ev)
}

// --- Admin Events ---

// Admin logs an action taken by actorID. target may be nil when the action
// does not concern a user.
func (l *Logger) Admin(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	ev := requestEvent(r, audit.CategoryAdmin, eventType, true)
	ev.ActorID = &actorID
	ev.UserID = target
	ev.Details = details
	l.Log(ctx, ev)
}
