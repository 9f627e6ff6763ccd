// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents students and admins.
//
// NOTE:
//   - A user owns at most one Plan and one GraduationRequirement; both are
//     keyed by user_id and removed by the account-deletion cascade.
//   - PasswordHash is empty for accounts that only ever signed in with Google.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // lowercased
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method" json:"authMethod"` // password | google
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Role         string             `bson:"role" json:"role"` // student | admin

	DepartmentID          *primitive.ObjectID `bson:"department_id,omitempty" json:"departmentId,omitempty"`
	SecondaryDepartmentID *primitive.ObjectID `bson:"secondary_department_id,omitempty" json:"secondaryDepartmentId,omitempty"`
	MajorType             string              `bson:"major_type,omitempty" json:"majorType,omitempty"` // single | double | minor
	EnrollmentYear        int                 `bson:"enrollment_year,omitempty" json:"enrollmentYear,omitempty"`
	OnboardingCompleted   bool                `bson:"onboarding_completed" json:"onboardingCompleted"`

	FailedLoginAttempts int        `bson:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `bson:"locked_until,omitempty" json:"-"`
	LastLoginAt         *time.Time `bson:"last_login_at,omitempty" json:"lastLoginAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsLocked reports whether the account is locked at time now.
func (u User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
