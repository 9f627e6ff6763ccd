package planner

import (
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/progress"
)

// CourseView is a placed course with its catalog entry attached.
// Course is nil when the entry no longer exists.
type CourseView struct {
	CourseID string       `json:"courseId"`
	Status   string       `json:"status"`
	Grade    string       `json:"grade,omitempty"`
	Course   *CourseEntry `json:"course,omitempty"`
}

// CourseEntry is a catalog course as shown inside a plan. ID is the catalog
// key, so guest custom courses (which have no database id) keep their
// "guest-" id in the output.
type CourseEntry struct {
	models.Course
	ID string `json:"id"`
}

type SemesterView struct {
	Year    int          `json:"year"`
	Term    string       `json:"term"`
	Courses []CourseView `json:"courses"`
}

// View is the JSON shape returned to clients after every plan operation.
type View struct {
	ID        string         `json:"id,omitempty"`
	Semesters []SemesterView `json:"semesters"`
}

// CourseIDs lists every course id placed in the plan.
func CourseIDs(p *models.Plan) []string {
	var ids []string
	for _, s := range p.Semesters {
		for _, c := range s.Courses {
			ids = append(ids, c.CourseID)
		}
	}
	return ids
}

// BuildView joins a plan with catalog entries keyed by course id.
func BuildView(p *models.Plan, catalog map[string]models.Course) View {
	v := View{Semesters: make([]SemesterView, 0, len(p.Semesters))}
	if !p.ID.IsZero() {
		v.ID = p.ID.Hex()
	}
	for _, s := range p.Semesters {
		sv := SemesterView{Year: s.Year, Term: s.Term, Courses: make([]CourseView, 0, len(s.Courses))}
		for _, pc := range s.Courses {
			cv := CourseView{CourseID: pc.CourseID, Status: pc.Status, Grade: pc.Grade}
			if c, ok := catalog[pc.CourseID]; ok {
				cv.Course = &CourseEntry{Course: c, ID: pc.CourseID}
			}
			sv.Courses = append(sv.Courses, cv)
		}
		v.Semesters = append(v.Semesters, sv)
	}
	return v
}

// Hydrate turns a plan into calculator input. Placed courses missing from
// the catalog are skipped.
func Hydrate(p *models.Plan, catalog map[string]models.Course) []progress.Semester {
	out := make([]progress.Semester, 0, len(p.Semesters))
	for _, s := range p.Semesters {
		ps := progress.Semester{Year: s.Year, Term: s.Term}
		for _, pc := range s.Courses {
			c, ok := catalog[pc.CourseID]
			if !ok {
				continue
			}
			ps.Courses = append(ps.Courses, progress.Course{
				CourseID:     pc.CourseID,
				Credits:      c.Credits,
				Category:     c.Category,
				Status:       pc.Status,
				DepartmentID: c.DepartmentHex(),
			})
		}
		out = append(out, ps)
	}
	return out
}
