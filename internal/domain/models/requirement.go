// internal/domain/models/requirement.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequirementTargets are the credit thresholds for graduation.
// Secondary* apply to double majors and Minor* to minors.
type RequirementTargets struct {
	TotalCredits              int `bson:"total_credits" json:"totalCredits"`
	PrimaryMajorCredits       int `bson:"primary_major_credits" json:"primaryMajorCredits"`
	PrimaryMajorRequiredMin   int `bson:"primary_major_required_min" json:"primaryMajorRequiredMin"`
	GeneralCredits            int `bson:"general_credits" json:"generalCredits"`
	SecondaryMajorCredits     int `bson:"secondary_major_credits" json:"secondaryMajorCredits"`
	SecondaryMajorRequiredMin int `bson:"secondary_major_required_min" json:"secondaryMajorRequiredMin"`
	MinorCredits              int `bson:"minor_credits" json:"minorCredits"`
	MinorRequiredMin          int `bson:"minor_required_min" json:"minorRequiredMin"`
}

// EarnedOffsets are credits completed outside the tracked plan (transfer credit, etc).
type EarnedOffsets struct {
	EarnedTotalCredits                int `bson:"earned_total_credits" json:"earnedTotalCredits"`
	EarnedPrimaryMajorCredits         int `bson:"earned_primary_major_credits" json:"earnedPrimaryMajorCredits"`
	EarnedPrimaryMajorRequiredCredits int `bson:"earned_primary_major_required_credits" json:"earnedPrimaryMajorRequiredCredits"`
	EarnedGeneralCredits              int `bson:"earned_general_credits" json:"earnedGeneralCredits"`
	EarnedSecondaryMajorCredits       int `bson:"earned_secondary_major_credits" json:"earnedSecondaryMajorCredits"`
	EarnedSecondaryRequiredCredits    int `bson:"earned_secondary_required_credits" json:"earnedSecondaryRequiredCredits"`
	EarnedMinorCredits                int `bson:"earned_minor_credits" json:"earnedMinorCredits"`
	EarnedMinorRequiredCredits        int `bson:"earned_minor_required_credits" json:"earnedMinorRequiredCredits"`
}

// GraduationRequirement holds one user's targets and external credit counts.
type GraduationRequirement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	MajorType string             `bson:"major_type" json:"majorType"`

	RequirementTargets `bson:",inline"`
	EarnedOffsets      `bson:",inline"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// SecondaryOrMinorCredits returns the secondary-track target that applies
// to the requirement's major type.
func (g GraduationRequirement) SecondaryOrMinorCredits() int {
	switch g.MajorType {
	case MajorDouble:
		return g.SecondaryMajorCredits
	case MajorMinor:
		return g.MinorCredits
	}
	return 0
}

// DepartmentRequirement maps (college, department, catalog year) to
// default targets per major type. Students read it to pre-fill their
// GraduationRequirement during onboarding.
type DepartmentRequirement struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	College      string             `bson:"college" json:"college"`
	DepartmentID primitive.ObjectID `bson:"department_id" json:"departmentId"`
	CatalogYear  int                `bson:"catalog_year" json:"catalogYear"`

	Single RequirementTargets `bson:"single" json:"single"`
	Double RequirementTargets `bson:"double" json:"double"`
	Minor  RequirementTargets `bson:"minor" json:"minor"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// TargetsFor returns the defaults for a major type (single when unknown).
func (d DepartmentRequirement) TargetsFor(majorType string) RequirementTargets {
	switch majorType {
	case MajorDouble:
		return d.Double
	case MajorMinor:
		return d.Minor
	}
	return d.Single
}
