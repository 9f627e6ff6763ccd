// internal/app/system/catalogseed/catalogseed.go
//
// Package catalogseed loads reference data (departments, official courses
// and department requirement tables) from a YAML catalog file and upserts
// it. Running the same file twice leaves the database unchanged.
package catalogseed

import (
	"context"
	"fmt"
	"io"

	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	departmentstore "github.com/hwankr/courseplanner/internal/app/store/departments"
	deptreqstore "github.com/hwankr/courseplanner/internal/app/store/deptreqs"
	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is the YAML document:
//
//	departments:
//	  - code: CSE
//	    name: Computer Science
//	    college: Engineering
//	courses:
//	  - code: CSE101
//	    name: Intro to Programming
//	    credits: 3
//	    department: CSE        # omit for common courses
//	    category: major_required
//	requirements:
//	  - department: CSE
//	    catalog_year: 2024
//	    single: { total_credits: 130, primary_major_credits: 60, general_credits: 30 }
type Catalog struct {
	Departments  []Department  `yaml:"departments"`
	Courses      []Course      `yaml:"courses"`
	Requirements []Requirement `yaml:"requirements"`
}

type Department struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	College string `yaml:"college"`
}

type Course struct {
	Code                string   `yaml:"code"`
	Name                string   `yaml:"name"`
	Credits             int      `yaml:"credits"`
	Department          string   `yaml:"department"`
	Category            string   `yaml:"category"`
	Semesters           []string `yaml:"semesters"`
	RecommendedYear     int      `yaml:"recommended_year"`
	RecommendedSemester string   `yaml:"recommended_semester"`
	Description         string   `yaml:"description"`
}

type Requirement struct {
	Department  string  `yaml:"department"`
	CatalogYear int     `yaml:"catalog_year"`
	Single      Targets `yaml:"single"`
	Double      Targets `yaml:"double"`
	Minor       Targets `yaml:"minor"`
}

// Targets mirrors models.RequirementTargets with snake_case YAML keys.
type Targets struct {
	TotalCredits              int `yaml:"total_credits"`
	PrimaryMajorCredits       int `yaml:"primary_major_credits"`
	PrimaryMajorRequiredMin   int `yaml:"primary_major_required_min"`
	GeneralCredits            int `yaml:"general_credits"`
	SecondaryMajorCredits     int `yaml:"secondary_major_credits"`
	SecondaryMajorRequiredMin int `yaml:"secondary_major_required_min"`
	MinorCredits              int `yaml:"minor_credits"`
	MinorRequiredMin          int `yaml:"minor_required_min"`
}

func (t Targets) model() models.RequirementTargets {
	return models.RequirementTargets{
		TotalCredits:              t.TotalCredits,
		PrimaryMajorCredits:       t.PrimaryMajorCredits,
		PrimaryMajorRequiredMin:   t.PrimaryMajorRequiredMin,
		GeneralCredits:            t.GeneralCredits,
		SecondaryMajorCredits:     t.SecondaryMajorCredits,
		SecondaryMajorRequiredMin: t.SecondaryMajorRequiredMin,
		MinorCredits:              t.MinorCredits,
		MinorRequiredMin:          t.MinorRequiredMin,
	}
}

// Result counts the documents written by Apply.
type Result struct {
	Departments  int
	Courses      int
	Requirements int
}

// Parse decodes a catalog. Unknown keys are rejected so typos surface
// instead of silently seeding zero values.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return &c, nil
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every entry and that course and requirement departments
// are declared in the same file.
func (c *Catalog) Validate() error {
	depts := make(map[string]struct{}, len(c.Departments))
	for i, d := range c.Departments {
		code := normalize.Code(d.Code)
		if code == "" || normalize.Name(d.Name) == "" {
			return fmt.Errorf("departments[%d]: code and name are required", i)
		}
		if _, dup := depts[code]; dup {
			return fmt.Errorf("departments[%d]: duplicate code %s", i, code)
		}
		depts[code] = struct{}{}
	}

	courses := make(map[string]struct{}, len(c.Courses))
	for i, co := range c.Courses {
		code := normalize.Code(co.Code)
		switch {
		case code == "" || normalize.Name(co.Name) == "":
			return fmt.Errorf("courses[%d]: code and name are required", i)
		case co.Credits < 1 || co.Credits > 30:
			return fmt.Errorf("courses[%d] %s: credits must be between 1 and 30", i, code)
		case !models.IsValidCategory(co.Category):
			return fmt.Errorf("courses[%d] %s: unknown category %q", i, code, co.Category)
		case co.RecommendedSemester != "" && !models.IsValidTerm(co.RecommendedSemester):
			return fmt.Errorf("courses[%d] %s: unknown term %q", i, code, co.RecommendedSemester)
		}
		for _, s := range co.Semesters {
			if !models.IsValidTerm(s) {
				return fmt.Errorf("courses[%d] %s: unknown term %q", i, code, s)
			}
		}
		if dc := normalize.Code(co.Department); dc != "" {
			if _, ok := depts[dc]; !ok {
				return fmt.Errorf("courses[%d] %s: department %s is not declared", i, code, dc)
			}
		}
		if _, dup := courses[code]; dup {
			return fmt.Errorf("courses[%d]: duplicate code %s", i, code)
		}
		courses[code] = struct{}{}
	}

	for i, r := range c.Requirements {
		dc := normalize.Code(r.Department)
		if _, ok := depts[dc]; !ok {
			return fmt.Errorf("requirements[%d]: department %q is not declared", i, r.Department)
		}
		if r.CatalogYear < 1990 || r.CatalogYear > 2100 {
			return fmt.Errorf("requirements[%d] %s: catalog_year out of range", i, dc)
		}
		if r.Single.TotalCredits <= 0 {
			return fmt.Errorf("requirements[%d] %s: single.total_credits is required", i, dc)
		}
	}
	return nil
}

// Apply upserts departments first so courses and requirement tables can
// reference them by id.
func Apply(ctx context.Context, db *mongo.Database, c *Catalog, logger *zap.Logger) (Result, error) {
	var res Result
	deptStore := departmentstore.New(db)
	courseStore := coursestore.New(db)
	reqStore := deptreqstore.New(db)

	ids := make(map[string]primitive.ObjectID, len(c.Departments))
	for _, d := range c.Departments {
		out, err := deptStore.Upsert(ctx, models.Department{Code: d.Code, Name: d.Name, College: d.College})
		if err != nil {
			return res, fmt.Errorf("department %s: %w", d.Code, err)
		}
		ids[out.Code] = out.ID
		res.Departments++
	}

	for _, co := range c.Courses {
		m := models.Course{
			Code:                co.Code,
			Name:                co.Name,
			Credits:             co.Credits,
			Category:            co.Category,
			Semesters:           co.Semesters,
			RecommendedYear:     co.RecommendedYear,
			RecommendedSemester: co.RecommendedSemester,
			Description:         co.Description,
		}
		if dc := normalize.Code(co.Department); dc != "" {
			id := ids[dc]
			m.DepartmentID = &id
		}
		if _, err := courseStore.Upsert(ctx, m); err != nil {
			return res, fmt.Errorf("course %s: %w", co.Code, err)
		}
		res.Courses++
	}

	for _, r := range c.Requirements {
		dc := normalize.Code(r.Department)
		college := ""
		for _, d := range c.Departments {
			if normalize.Code(d.Code) == dc {
				college = normalize.Name(d.College)
				break
			}
		}
		if _, err := reqStore.Upsert(ctx, models.DepartmentRequirement{
			College:      college,
			DepartmentID: ids[dc],
			CatalogYear:  r.CatalogYear,
			Single:       r.Single.model(),
			Double:       r.Double.model(),
			Minor:        r.Minor.model(),
		}); err != nil {
			return res, fmt.Errorf("requirements %s/%d: %w", dc, r.CatalogYear, err)
		}
		res.Requirements++
	}

	logger.Info("catalog seeded",
		zap.Int("departments", res.Departments),
		zap.Int("courses", res.Courses),
		zap.Int("requirements", res.Requirements))
	return res, nil
}
