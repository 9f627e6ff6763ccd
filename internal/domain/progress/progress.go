// Package progress computes graduation progress from a requirement record
// and the courses placed in a plan. It is pure: no I/O, no errors.
package progress

import (
	"math"

	"github.com/hwankr/courseplanner/internal/domain/models"
)

// Course is a placed course joined with the catalog fields the calculator needs.
type Course struct {
	CourseID     string `json:"courseId"`
	Credits      int    `json:"credits"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	DepartmentID string `json:"departmentId,omitempty"`
}

// Semester groups placed courses; only the courses matter for progress.
type Semester struct {
	Year    int      `json:"year"`
	Term    string   `json:"term"`
	Courses []Course `json:"courses"`
}

// Bucket holds credit sums for one tracked requirement.
type Bucket struct {
	Required            int     `json:"required"`
	Earned              int     `json:"earned"`
	Enrolled            int     `json:"enrolled"`
	Planned             int     `json:"planned"`
	Percentage          int     `json:"percentage"`
	ProjectedPercentage int     `json:"projectedPercentage"`
	RequiredMin         *Bucket `json:"requiredMin,omitempty"`
}

// Progress is the full result. SecondaryMajor is set for double majors and
// Minor for minors.
type Progress struct {
	MajorType      string  `json:"majorType"`
	Total          Bucket  `json:"total"`
	PrimaryMajor   Bucket  `json:"primaryMajor"`
	General        Bucket  `json:"general"`
	SecondaryMajor *Bucket `json:"secondaryMajor,omitempty"`
	Minor          *Bucket `json:"minor,omitempty"`
}

// Percent returns round(100*part/whole) clamped to [0, 100]; whole <= 0 yields 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) * 100 / float64(whole)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Calculate sums credits per bucket.
//
// Failed courses are ignored. Major-category courses count toward the
// primary track unless track mode is on (double or minor with both
// department ids given) and the course belongs to the secondary
// department. Free electives and teaching courses count toward the total only.
func Calculate(req models.GraduationRequirement, semesters []Semester, primaryDeptID, secondaryDeptID string) Progress {
	majorType := req.MajorType
	if majorType == "" {
		majorType = models.MajorSingle
	}
	hasSecondary := majorType == models.MajorDouble || majorType == models.MajorMinor
	trackMode := hasSecondary && primaryDeptID != "" && secondaryDeptID != ""

	out := Progress{
		MajorType: majorType,
		Total:     Bucket{Required: req.TotalCredits, Earned: req.EarnedTotalCredits},
		PrimaryMajor: Bucket{
			Required:    req.PrimaryMajorCredits,
			Earned:      req.EarnedPrimaryMajorCredits,
			RequiredMin: &Bucket{Required: req.PrimaryMajorRequiredMin, Earned: req.EarnedPrimaryMajorRequiredCredits},
		},
		General: Bucket{Required: req.GeneralCredits, Earned: req.EarnedGeneralCredits},
	}

	var secondary *Bucket
	switch majorType {
	case models.MajorDouble:
		secondary = &Bucket{
			Required:    req.SecondaryMajorCredits,
			Earned:      req.EarnedSecondaryMajorCredits,
			RequiredMin: &Bucket{Required: req.SecondaryMajorRequiredMin, Earned: req.EarnedSecondaryRequiredCredits},
		}
		out.SecondaryMajor = secondary
	case models.MajorMinor:
		secondary = &Bucket{
			Required:    req.MinorCredits,
			Earned:      req.EarnedMinorCredits,
			RequiredMin: &Bucket{Required: req.MinorRequiredMin, Earned: req.EarnedMinorRequiredCredits},
		}
		out.Minor = secondary
	}

	for _, sem := range semesters {
		for _, c := range sem.Courses {
			if c.Status == models.StatusFailed || c.Credits <= 0 {
				continue
			}
			add(&out.Total, c)

			switch {
			case models.IsMajorCategory(c.Category):
				track := &out.PrimaryMajor
				if trackMode && c.DepartmentID == secondaryDeptID {
					track = secondary
				}
				add(track, c)
				if models.IsRequiredMinCategory(c.Category) {
					add(track.RequiredMin, c)
				}
			case models.IsGeneralCategory(c.Category):
				add(&out.General, c)
			}
		}
	}

	finish(&out.Total)
	finish(&out.PrimaryMajor)
	finish(&out.General)
	if secondary != nil {
		finish(secondary)
	}
	return out
}

func add(b *Bucket, c Course) {
	switch c.Status {
	case models.StatusCompleted:
		b.Earned += c.Credits
	case models.StatusEnrolled:
		b.Enrolled += c.Credits
	case models.StatusPlanned:
		b.Planned += c.Credits
	}
}

func finish(b *Bucket) {
	b.Percentage = Percent(b.Earned, b.Required)
	b.ProjectedPercentage = Percent(b.Earned+b.Enrolled+b.Planned, b.Required)
	if b.RequiredMin != nil {
		finish(b.RequiredMin)
	}
}
