package planner

import (
	"context"

	"github.com/hwankr/courseplanner/internal/domain/models"
)

// Storage loads and saves one plan. Registered users get a Mongo-backed
// storage and guests a cookie-backed one; both run the same operations.
type Storage interface {
	// Load returns the plan, creating an empty one if none exists yet.
	Load(ctx context.Context) (*models.Plan, error)
	Save(ctx context.Context, p *models.Plan) error
}

// Op mutates a plan and reports whether it changed anything.
type Op func(p *models.Plan) (bool, error)

// Apply loads the plan, runs op and saves only when op changed something.
// On error nothing is saved and the loaded plan is returned unchanged.
func Apply(ctx context.Context, s Storage, op Op) (*models.Plan, bool, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	if p.Semesters == nil {
		p.Semesters = []models.Semester{}
	}
	changed, err := op(p)
	if err != nil {
		return p, false, err
	}
	if !changed {
		return p, false, nil
	}
	Sort(p)
	if err := s.Save(ctx, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// MemoryStorage keeps a plan in memory.
type MemoryStorage struct {
	Plan  *models.Plan
	Saves int
}

func (m *MemoryStorage) Load(ctx context.Context) (*models.Plan, error) {
	if m.Plan == nil {
		m.Plan = &models.Plan{Semesters: []models.Semester{}}
	}
	cp := Clone(m.Plan)
	return cp, nil
}

func (m *MemoryStorage) Save(ctx context.Context, p *models.Plan) error {
	m.Plan = Clone(p)
	m.Saves++
	return nil
}

// Clone deep-copies a plan.
func Clone(p *models.Plan) *models.Plan {
	cp := *p
	cp.Semesters = make([]models.Semester, len(p.Semesters))
	for i, s := range p.Semesters {
		s.Courses = append([]models.PlannedCourse{}, s.Courses...)
		cp.Semesters[i] = s
	}
	return &cp
}
