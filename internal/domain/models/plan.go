// internal/domain/models/plan.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Plan is a user's semesters and placed courses. There is one plan per user.
//
// Semesters are kept sorted by (year, term). A course id appears at most once
// across all semesters; the planner package enforces this on mutation.
type Plan struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	Semesters []Semester         `bson:"semesters" json:"semesters"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Semester is one (year, term) slot in a plan.
type Semester struct {
	Year    int             `bson:"year" json:"year"`
	Term    string          `bson:"term" json:"term"`
	Courses []PlannedCourse `bson:"courses" json:"courses"`
}

// PlannedCourse places a catalog (or custom) course into a semester.
// CourseID is the hex ObjectID for catalog courses and a "guest-" prefixed
// uuid for guest custom courses.
type PlannedCourse struct {
	CourseID string `bson:"course_id" json:"courseId"`
	Status   string `bson:"status" json:"status"`
	Grade    string `bson:"grade,omitempty" json:"grade,omitempty"`
}
