// internal/domain/models/academicevent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventAcademic     = "academic"
	EventRegistration = "registration"
	EventExam         = "exam"
	EventHoliday      = "holiday"
	EventOther        = "other"
)

var AllEventCategories = []string{EventAcademic, EventRegistration, EventExam, EventHoliday, EventOther}

// AcademicEvent is a calendar entry (registration windows, exams, holidays).
type AcademicEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	StartDate   time.Time          `bson:"start_date" json:"startDate"`
	EndDate     time.Time          `bson:"end_date" json:"endDate"`
	Category    string             `bson:"category" json:"category"`
	CreatedBy   primitive.ObjectID `bson:"created_by,omitempty" json:"createdBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func IsValidEventCategory(v string) bool { return contains(AllEventCategories, v) }
