// internal/domain/models/course.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is a catalog entry.
//
// CreatedBy == nil marks an official course shared by everyone; a non-nil
// CreatedBy marks a custom course visible only to its creator.
// DepartmentID == nil marks a common course (general education, etc).
type Course struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Code                string               `bson:"code" json:"code"`
	Name                string               `bson:"name" json:"name"`
	NameCI              string               `bson:"name_ci" json:"-"`
	Credits             int                  `bson:"credits" json:"credits"`
	DepartmentID        *primitive.ObjectID  `bson:"department_id,omitempty" json:"departmentId,omitempty"`
	Category            string               `bson:"category" json:"category"`
	Semesters           []string             `bson:"semesters,omitempty" json:"semesters,omitempty"`
	RecommendedYear     int                  `bson:"recommended_year,omitempty" json:"recommendedYear,omitempty"`
	RecommendedSemester string               `bson:"recommended_semester,omitempty" json:"recommendedSemester,omitempty"`
	Prerequisites       []primitive.ObjectID `bson:"prerequisites,omitempty" json:"prerequisites,omitempty"`
	Description         string               `bson:"description,omitempty" json:"description,omitempty"`
	Active              bool                 `bson:"active" json:"active"`
	CreatedBy           *primitive.ObjectID  `bson:"created_by,omitempty" json:"createdBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsOfficial reports whether the course is shared reference data.
func (c Course) IsOfficial() bool { return c.CreatedBy == nil }

// DepartmentHex returns the department id as hex, or "" for common courses.
func (c Course) DepartmentHex() string {
	if c.DepartmentID == nil {
		return ""
	}
	return c.DepartmentID.Hex()
}
