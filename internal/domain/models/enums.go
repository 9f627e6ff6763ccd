// internal/domain/models/enums.go
package models

// Roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Sign-in methods.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

// Major types. Double majors and minors carry a secondary department.
const (
	MajorSingle = "single"
	MajorDouble = "double"
	MajorMinor  = "minor"
)

// Course categories.
const (
	CategoryMajorRequired   = "major_required"
	CategoryMajorCompulsory = "major_compulsory"
	CategoryMajorElective   = "major_elective"
	CategoryGeneralRequired = "general_required"
	CategoryGeneralElective = "general_elective"
	CategoryFreeElective    = "free_elective"
	CategoryTeaching        = "teaching"
)

// Planned-course statuses.
const (
	StatusPlanned   = "planned"
	StatusEnrolled  = "enrolled"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Terms, in calendar order within a year.
const (
	TermSpring = "spring"
	TermSummer = "summer"
	TermFall   = "fall"
	TermWinter = "winter"
)

var (
	AllRoles      = []string{RoleStudent, RoleAdmin}
	AllMajorTypes = []string{MajorSingle, MajorDouble, MajorMinor}
	AllCategories = []string{
		CategoryMajorRequired, CategoryMajorCompulsory, CategoryMajorElective,
		CategoryGeneralRequired, CategoryGeneralElective,
		CategoryFreeElective, CategoryTeaching,
	}
	AllCourseStatuses = []string{StatusPlanned, StatusEnrolled, StatusCompleted, StatusFailed}
	AllTerms          = []string{TermSpring, TermSummer, TermFall, TermWinter}
	AllGrades         = []string{
		"A+", "A0", "A-", "B+", "B0", "B-", "C+", "C0", "C-",
		"D+", "D0", "D-", "F", "P", "NP",
	}
)

// TermOrder returns the position of term within a year, or -1 if unknown.
func TermOrder(term string) int {
	for i, t := range AllTerms {
		if t == term {
			return i
		}
	}
	return -1
}

func IsValidRole(v string) bool         { return contains(AllRoles, v) }
func IsValidMajorType(v string) bool    { return contains(AllMajorTypes, v) }
func IsValidCategory(v string) bool     { return contains(AllCategories, v) }
func IsValidCourseStatus(v string) bool { return contains(AllCourseStatuses, v) }
func IsValidTerm(v string) bool         { return TermOrder(v) >= 0 }
func IsValidGrade(v string) bool        { return contains(AllGrades, v) }

// IsMajorCategory reports whether credits in this category count toward a major track.
func IsMajorCategory(c string) bool {
	return c == CategoryMajorRequired || c == CategoryMajorCompulsory || c == CategoryMajorElective
}

// IsRequiredMinCategory reports whether the category counts toward a track's
// required-minimum sub-bucket.
func IsRequiredMinCategory(c string) bool {
	return c == CategoryMajorRequired || c == CategoryMajorCompulsory
}

// IsGeneralCategory reports whether credits in this category count toward general education.
func IsGeneralCategory(c string) bool {
	return c == CategoryGeneralRequired || c == CategoryGeneralElective
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
