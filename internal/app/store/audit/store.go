// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventRegistered               = "registered"
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedLocked        = "login_failed_locked"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventAccountLocked            = "account_locked"
	EventLogout                   = "logout"
	EventPasswordChanged          = "password_changed"
	EventAccountDeleted           = "account_deleted"
	EventOnboardingCompleted      = "onboarding_completed"
)

// Admin event types
const (
	EventRoleChanged                  = "role_changed"
	EventUserDeleted                  = "user_deleted"
	EventCourseCreated                = "course_created"
	EventCourseUpdated                = "course_updated"
	EventCourseDeleted                = "course_deleted"
	EventDepartmentCreated            = "department_created"
	EventDepartmentUpdated            = "department_updated"
	EventDepartmentDeleted            = "department_deleted"
	EventDepartmentRequirementChanged = "department_requirement_changed"
	EventDepartmentRequirementDeleted = "department_requirement_deleted"
	EventFeedbackUpdated              = "feedback_updated"
	EventPatchNoteSaved               = "patch_note_saved"
	EventPatchNotePublished           = "patch_note_published"
	EventPatchNoteDeleted             = "patch_note_deleted"
	EventAcademicEventSaved           = "academic_event_saved"
	EventAcademicEventDeleted         = "academic_event_deleted"
	EventCatalogSeeded                = "catalog_seeded"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"eventType"`

	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`   // affected user
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actorId,omitempty"` // admin who acted

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	UserID    *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

func (f QueryFilter) bson() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = f.UserID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["created_at"] = tq
	}
	return q
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns matching events, newest first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.bson(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.bson())
}

// GetByUser retrieves recent audit events for a specific user.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{UserID: &userID, Limit: limit})
}

// CountFailedLogins counts failed login events since the given time.
func (s *Store) CountFailedLogins(ctx context.Context, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"category":   CategoryAuth,
		"success":    false,
		"created_at": bson.M{"$gte": since},
	})
}
