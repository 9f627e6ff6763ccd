// Package planner holds the plan-mutation operations. They work on an
// in-memory models.Plan; where the plan lives is decided by a Storage.
package planner

import (
	"errors"
	"sort"

	"github.com/hwankr/courseplanner/internal/domain/models"
)

var (
	ErrSemesterNotFound = errors.New("semester not found")
	ErrCourseNotFound   = errors.New("course not found in semester")
)

// AddResult tells a caller whether AddCourse placed the course.
type AddResult int

const (
	Added AddResult = iota
	AlreadyPlanned
)

// Sort orders semesters by year, then by term (spring, summer, fall, winter).
func Sort(p *models.Plan) {
	sort.SliceStable(p.Semesters, func(i, j int) bool {
		a, b := p.Semesters[i], p.Semesters[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return models.TermOrder(a.Term) < models.TermOrder(b.Term)
	})
}

func find(p *models.Plan, year int, term string) int {
	for i := range p.Semesters {
		if p.Semesters[i].Year == year && p.Semesters[i].Term == term {
			return i
		}
	}
	return -1
}

func indexOf(courses []models.PlannedCourse, courseID string) int {
	for i := range courses {
		if courses[i].CourseID == courseID {
			return i
		}
	}
	return -1
}

// Contains reports whether courseID is placed anywhere in the plan.
func Contains(p *models.Plan, courseID string) bool {
	for _, s := range p.Semesters {
		if indexOf(s.Courses, courseID) >= 0 {
			return true
		}
	}
	return false
}

// AddSemester inserts an empty (year, term) semester. It returns false when
// the semester already exists.
func AddSemester(p *models.Plan, year int, term string) bool {
	if find(p, year, term) >= 0 {
		return false
	}
	p.Semesters = append(p.Semesters, models.Semester{Year: year, Term: term, Courses: []models.PlannedCourse{}})
	Sort(p)
	return true
}

// RemoveSemester deletes the semester and the courses in it.
func RemoveSemester(p *models.Plan, year int, term string) bool {
	i := find(p, year, term)
	if i < 0 {
		return false
	}
	p.Semesters = append(p.Semesters[:i], p.Semesters[i+1:]...)
	return true
}

// AddCourse appends courseID to an existing semester. A course already
// placed anywhere in the plan is left where it is and AlreadyPlanned is returned.
func AddCourse(p *models.Plan, year int, term, courseID, status string) (AddResult, error) {
	i := find(p, year, term)
	if i < 0 {
		return AlreadyPlanned, ErrSemesterNotFound
	}
	if Contains(p, courseID) {
		return AlreadyPlanned, nil
	}
	if status == "" {
		status = models.StatusPlanned
	}
	p.Semesters[i].Courses = append(p.Semesters[i].Courses, models.PlannedCourse{CourseID: courseID, Status: status})
	return Added, nil
}

// RemoveCourse filters courseID out of one semester.
func RemoveCourse(p *models.Plan, year int, term, courseID string) bool {
	i := find(p, year, term)
	if i < 0 {
		return false
	}
	j := indexOf(p.Semesters[i].Courses, courseID)
	if j < 0 {
		return false
	}
	cs := p.Semesters[i].Courses
	p.Semesters[i].Courses = append(cs[:j], cs[j+1:]...)
	return true
}

// MoveCourse moves courseID from the source semester to the end of the
// destination. Nothing changes when the course is not in the source.
// A missing destination returns ErrSemesterNotFound with the plan untouched.
func MoveCourse(p *models.Plan, srcYear int, srcTerm string, dstYear int, dstTerm, courseID string) (bool, error) {
	si := find(p, srcYear, srcTerm)
	if si < 0 {
		return false, nil
	}
	j := indexOf(p.Semesters[si].Courses, courseID)
	if j < 0 {
		return false, nil
	}
	di := find(p, dstYear, dstTerm)
	if di < 0 {
		return false, ErrSemesterNotFound
	}
	if si == di {
		return false, nil
	}
	pc := p.Semesters[si].Courses[j]
	cs := p.Semesters[si].Courses
	p.Semesters[si].Courses = append(cs[:j], cs[j+1:]...)
	p.Semesters[di].Courses = append(p.Semesters[di].Courses, pc)
	return true, nil
}

// UpdateCourseStatus sets status (any transition is allowed). The grade
// is replaced only when grade is non-empty.
func UpdateCourseStatus(p *models.Plan, year int, term, courseID, status, grade string) (bool, error) {
	i := find(p, year, term)
	if i < 0 {
		return false, ErrSemesterNotFound
	}
	j := indexOf(p.Semesters[i].Courses, courseID)
	if j < 0 {
		return false, ErrCourseNotFound
	}
	pc := &p.Semesters[i].Courses[j]
	changed := pc.Status != status || (grade != "" && pc.Grade != grade)
	pc.Status = status
	if grade != "" {
		pc.Grade = grade
	}
	return changed, nil
}

// Reset empties the plan.
func Reset(p *models.Plan) bool {
	if len(p.Semesters) == 0 {
		return false
	}
	p.Semesters = []models.Semester{}
	return true
}

// RemoveCourseEverywhere drops courseID from every semester. Used when a
// custom course is deleted.
func RemoveCourseEverywhere(p *models.Plan, courseID string) bool {
	changed := false
	for i := range p.Semesters {
		if j := indexOf(p.Semesters[i].Courses, courseID); j >= 0 {
			cs := p.Semesters[i].Courses
			p.Semesters[i].Courses = append(cs[:j], cs[j+1:]...)
			changed = true
		}
	}
	return changed
}
