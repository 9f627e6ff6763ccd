package progress

import (
	"encoding/json"
	"testing"

	"github.com/hwankr/courseplanner/internal/domain/models"
)

func baseRequirement() models.GraduationRequirement {
	return models.GraduationRequirement{
		MajorType: models.MajorSingle,
		RequirementTargets: models.RequirementTargets{
			TotalCredits:            120,
			PrimaryMajorCredits:     63,
			PrimaryMajorRequiredMin: 24,
			GeneralCredits:          30,
		},
	}
}

func TestCalculate_SingleCompletedMajorRequired(t *testing.T) {
	sems := []Semester{{Year: 1, Term: models.TermSpring, Courses: []Course{
		{CourseID: "c1", Credits: 3, Category: models.CategoryMajorRequired, Status: models.StatusCompleted},
	}}}

	p := Calculate(baseRequirement(), sems, "", "")

	if p.PrimaryMajor.Earned != 3 {
		t.Errorf("primaryMajor.earned: got %d, want 3", p.PrimaryMajor.Earned)
	}
	if p.PrimaryMajor.RequiredMin == nil || p.PrimaryMajor.RequiredMin.Earned != 3 {
		t.Errorf("primaryMajor.requiredMin.earned: got %+v, want 3", p.PrimaryMajor.RequiredMin)
	}
	if p.PrimaryMajor.Percentage != 5 {
		t.Errorf("primaryMajor.percentage: got %d, want 5", p.PrimaryMajor.Percentage)
	}
	if p.Total.Percentage != 3 {
		t.Errorf("total.percentage: got %d, want 3", p.Total.Percentage)
	}
	if p.General.Earned != 0 {
		t.Errorf("general.earned: got %d, want 0", p.General.Earned)
	}
	if p.SecondaryMajor != nil || p.Minor != nil {
		t.Error("single major should not carry a secondary bucket")
	}
}

func TestCalculate_FailedCoursesIgnored(t *testing.T) {
	sems := []Semester{{Year: 1, Term: models.TermFall, Courses: []Course{
		{CourseID: "a", Credits: 3, Category: models.CategoryMajorRequired, Status: models.StatusFailed},
		{CourseID: "b", Credits: 3, Category: models.CategoryGeneralElective, Status: models.StatusFailed},
		{CourseID: "c", Credits: 2, Category: models.CategoryFreeElective, Status: models.StatusFailed},
	}}}

	p := Calculate(baseRequirement(), sems, "", "")

	for name, b := range map[string]Bucket{"total": p.Total, "primary": p.PrimaryMajor, "general": p.General, "requiredMin": *p.PrimaryMajor.RequiredMin} {
		if b.Earned != 0 || b.Enrolled != 0 || b.Planned != 0 {
			t.Errorf("%s: failed courses counted: %+v", name, b)
		}
	}
}

func TestCalculate_PercentageClamped(t *testing.T) {
	req := baseRequirement()
	req.GeneralCredits = 3
	sems := []Semester{{Year: 1, Term: models.TermSpring, Courses: []Course{
		{CourseID: "g1", Credits: 3, Category: models.CategoryGeneralRequired, Status: models.StatusCompleted},
		{CourseID: "g2", Credits: 3, Category: models.CategoryGeneralElective, Status: models.StatusCompleted},
		{CourseID: "g3", Credits: 3, Category: models.CategoryGeneralElective, Status: models.StatusPlanned},
	}}}

	p := Calculate(req, sems, "", "")

	if p.General.Percentage != 100 {
		t.Errorf("general.percentage: got %d, want 100", p.General.Percentage)
	}
	if p.General.ProjectedPercentage != 100 {
		t.Errorf("general.projectedPercentage: got %d, want 100", p.General.ProjectedPercentage)
	}
}

func TestCalculate_ZeroRequiredIsZeroPercent(t *testing.T) {
	req := models.GraduationRequirement{MajorType: models.MajorSingle}
	sems := []Semester{{Year: 1, Term: models.TermSpring, Courses: []Course{
		{CourseID: "c1", Credits: 3, Category: models.CategoryMajorElective, Status: models.StatusCompleted},
	}}}

	p := Calculate(req, sems, "", "")

	if p.Total.Percentage != 0 || p.PrimaryMajor.Percentage != 0 || p.PrimaryMajor.RequiredMin.Percentage != 0 {
		t.Errorf("expected 0%% with zero targets, got %+v", p)
	}
}

func TestCalculate_StatusBuckets(t *testing.T) {
	sems := []Semester{
		{Year: 1, Term: models.TermSpring, Courses: []Course{
			{CourseID: "a", Credits: 3, Category: models.CategoryMajorElective, Status: models.StatusCompleted},
			{CourseID: "b", Credits: 3, Category: models.CategoryMajorCompulsory, Status: models.StatusEnrolled},
		}},
		{Year: 1, Term: models.TermFall, Courses: []Course{
			{CourseID: "c", Credits: 2, Category: models.CategoryTeaching, Status: models.StatusPlanned},
			{CourseID: "d", Credits: 3, Category: models.CategoryGeneralRequired, Status: models.StatusPlanned},
		}},
	}

	p := Calculate(baseRequirement(), sems, "", "")

	if p.Total.Earned != 3 || p.Total.Enrolled != 3 || p.Total.Planned != 5 {
		t.Errorf("total sums: %+v", p.Total)
	}
	if p.PrimaryMajor.Earned != 3 || p.PrimaryMajor.Enrolled != 3 || p.PrimaryMajor.Planned != 0 {
		t.Errorf("primary sums: %+v", p.PrimaryMajor)
	}
	if rm := p.PrimaryMajor.RequiredMin; rm.Earned != 0 || rm.Enrolled != 3 {
		t.Errorf("requiredMin sums: %+v", rm)
	}
	if p.General.Planned != 3 {
		t.Errorf("general.planned: got %d, want 3", p.General.Planned)
	}
	if p.Total.ProjectedPercentage != Percent(11, 120) {
		t.Errorf("total.projectedPercentage: got %d", p.Total.ProjectedPercentage)
	}
}

func TestCalculate_EarnedOffsetsAdded(t *testing.T) {
	req := baseRequirement()
	req.EarnedTotalCredits = 30
	req.EarnedPrimaryMajorCredits = 9
	req.EarnedPrimaryMajorRequiredCredits = 6
	req.EarnedGeneralCredits = 12
	sems := []Semester{{Year: 1, Term: models.TermSpring, Courses: []Course{
		{CourseID: "a", Credits: 3, Category: models.CategoryMajorRequired, Status: models.StatusCompleted},
	}}}

	p := Calculate(req, sems, "", "")

	if p.Total.Earned != 33 {
		t.Errorf("total.earned: got %d, want 33", p.Total.Earned)
	}
	if p.PrimaryMajor.Earned != 12 || p.PrimaryMajor.RequiredMin.Earned != 9 {
		t.Errorf("primary: %+v / %+v", p.PrimaryMajor, p.PrimaryMajor.RequiredMin)
	}
	if p.General.Earned != 12 || p.General.Percentage != 40 {
		t.Errorf("general: %+v", p.General)
	}
}

func TestCalculate_DoubleMajorTrackMode(t *testing.T) {
	req := baseRequirement()
	req.MajorType = models.MajorDouble
	req.PrimaryMajorCredits = 36
	req.SecondaryMajorCredits = 36
	req.SecondaryMajorRequiredMin = 12
	sems := []Semester{{Year: 2, Term: models.TermSpring, Courses: []Course{
		{CourseID: "p", Credits: 3, Category: models.CategoryMajorRequired, Status: models.StatusCompleted, DepartmentID: "dept-a"},
		{CourseID: "s", Credits: 3, Category: models.CategoryMajorRequired, Status: models.StatusCompleted, DepartmentID: "dept-b"},
		{CourseID: "e", Credits: 3, Category: models.CategoryMajorElective, Status: models.StatusPlanned, DepartmentID: "dept-b"},
		{CourseID: "o", Credits: 3, Category: models.CategoryMajorElective, Status: models.StatusCompleted, DepartmentID: "dept-c"},
	}}}

	p := Calculate(req, sems, "dept-a", "dept-b")

	if p.SecondaryMajor == nil {
		t.Fatal("expected secondaryMajor bucket")
	}
	if p.Minor != nil {
		t.Error("double major should not carry a minor bucket")
	}
	if p.PrimaryMajor.Earned != 6 {
		t.Errorf("primary.earned: got %d, want 6 (own dept + unrelated dept)", p.PrimaryMajor.Earned)
	}
	if p.SecondaryMajor.Earned != 3 || p.SecondaryMajor.Planned != 3 {
		t.Errorf("secondary: %+v", p.SecondaryMajor)
	}
	if p.SecondaryMajor.RequiredMin.Earned != 3 {
		t.Errorf("secondary.requiredMin.earned: got %d, want 3", p.SecondaryMajor.RequiredMin.Earned)
	}
	if p.Total.Earned != 9 {
		t.Errorf("total.earned: got %d, want 9", p.Total.Earned)
	}
}

func TestCalculate_MinorWithoutDepartmentsUsesCategoryOnly(t *testing.T) {
	req := baseRequirement()
	req.MajorType = models.MajorMinor
	req.MinorCredits = 21
	sems := []Semester{{Year: 1, Term: models.TermSpring, Courses: []Course{
		{CourseID: "x", Credits: 3, Category: models.CategoryMajorRequired, Status: models.StatusCompleted, DepartmentID: "dept-b"},
	}}}

	p := Calculate(req, sems, "dept-a", "")

	if p.Minor == nil {
		t.Fatal("expected minor bucket")
	}
	if p.Minor.Earned != 0 || p.PrimaryMajor.Earned != 3 {
		t.Errorf("without both departments all major credits go to primary: primary=%+v minor=%+v", p.PrimaryMajor, p.Minor)
	}
	if p.Minor.Required != 21 {
		t.Errorf("minor.required: got %d, want 21", p.Minor.Required)
	}
}

func TestProgress_JSONRoundTripReproducesPercentages(t *testing.T) {
	req := baseRequirement()
	req.GeneralCredits = 0
	sems := []Semester{{Year: 1, Term: models.TermSpring, Courses: []Course{
		{CourseID: "a", Credits: 3, Category: models.CategoryMajorRequired, Status: models.StatusCompleted},
		{CourseID: "b", Credits: 3, Category: models.CategoryGeneralRequired, Status: models.StatusPlanned},
	}}}

	raw, err := json.Marshal(Calculate(req, sems, "", ""))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Progress
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for name, b := range map[string]Bucket{"total": got.Total, "primary": got.PrimaryMajor, "general": got.General} {
		if b.Percentage != Percent(b.Earned, b.Required) {
			t.Errorf("%s: percentage %d does not match earned/required", name, b.Percentage)
		}
		if b.ProjectedPercentage != Percent(b.Earned+b.Enrolled+b.Planned, b.Required) {
			t.Errorf("%s: projected %d does not match", name, b.ProjectedPercentage)
		}
	}
	if got.General.Percentage != 0 || got.General.ProjectedPercentage != 0 {
		t.Errorf("general with zero required: %+v", got.General)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, whole, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{3, 63, 5},
		{3, 120, 3},
		{1, 3, 33},
		{2, 3, 67},
		{200, 100, 100},
		{-5, 100, 0},
	}
	for _, tc := range tests {
		if got := Percent(tc.part, tc.whole); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.part, tc.whole, got, tc.want)
		}
	}
}
