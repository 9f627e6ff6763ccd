package inputval

import (
	"github.com/go-playground/validator/v10"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

// RequirementInput is the body for creating or replacing a graduation
// requirement (members, guests and onboarding share it).
type RequirementInput struct {
	MajorType string `json:"majorType" validate:"required,major_type"`

	TotalCredits              int `json:"totalCredits" validate:"gte=1,lte=300"`
	PrimaryMajorCredits       int `json:"primaryMajorCredits" validate:"gte=0,lte=300"`
	PrimaryMajorRequiredMin   int `json:"primaryMajorRequiredMin" validate:"gte=0,lte=300"`
	GeneralCredits            int `json:"generalCredits" validate:"gte=0,lte=300"`
	SecondaryMajorCredits     int `json:"secondaryMajorCredits" validate:"gte=0,lte=300"`
	SecondaryMajorRequiredMin int `json:"secondaryMajorRequiredMin" validate:"gte=0,lte=300"`
	MinorCredits              int `json:"minorCredits" validate:"gte=0,lte=300"`
	MinorRequiredMin          int `json:"minorRequiredMin" validate:"gte=0,lte=300"`

	EarnedTotalCredits                int `json:"earnedTotalCredits" validate:"gte=0,lte=300"`
	EarnedPrimaryMajorCredits         int `json:"earnedPrimaryMajorCredits" validate:"gte=0,lte=300"`
	EarnedPrimaryMajorRequiredCredits int `json:"earnedPrimaryMajorRequiredCredits" validate:"gte=0,lte=300"`
	EarnedGeneralCredits              int `json:"earnedGeneralCredits" validate:"gte=0,lte=300"`
	EarnedSecondaryMajorCredits       int `json:"earnedSecondaryMajorCredits" validate:"gte=0,lte=300"`
	EarnedSecondaryRequiredCredits    int `json:"earnedSecondaryRequiredCredits" validate:"gte=0,lte=300"`
	EarnedMinorCredits                int `json:"earnedMinorCredits" validate:"gte=0,lte=300"`
	EarnedMinorRequiredCredits        int `json:"earnedMinorRequiredCredits" validate:"gte=0,lte=300"`
}

const (
	creditsExceedTotalTag = "credits_exceed_total"
	requiredMinTag        = "required_min_exceeds"
)

func init() {
	RegisterStructValidation(requirementStructValidation, RequirementInput{})
	RegisterCustomTranslation(creditsExceedTotalTag, "major and general credits together cannot exceed totalCredits")
	RegisterCustomTranslation(requiredMinTag, "{0} cannot exceed its track's credits")
}

// SecondaryOrMinor returns the secondary-track target for the major type.
func (in RequirementInput) SecondaryOrMinor() int {
	switch in.MajorType {
	case models.MajorDouble:
		return in.SecondaryMajorCredits
	case models.MajorMinor:
		return in.MinorCredits
	}
	return 0
}

// requirementStructValidation enforces
// primaryMajorCredits + secondaryOrMinorCredits + generalCredits <= totalCredits
// and that each required minimum fits inside its track.
func requirementStructValidation(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(RequirementInput)
	if !ok {
		return
	}
	if in.PrimaryMajorCredits+in.SecondaryOrMinor()+in.GeneralCredits > in.TotalCredits {
		sl.ReportError(in.TotalCredits, "totalCredits", "TotalCredits", creditsExceedTotalTag, "")
	}
	if in.PrimaryMajorRequiredMin > in.PrimaryMajorCredits {
		sl.ReportError(in.PrimaryMajorRequiredMin, "primaryMajorRequiredMin", "PrimaryMajorRequiredMin", requiredMinTag, "")
	}
	switch in.MajorType {
	case models.MajorDouble:
		if in.SecondaryMajorRequiredMin > in.SecondaryMajorCredits {
			sl.ReportError(in.SecondaryMajorRequiredMin, "secondaryMajorRequiredMin", "SecondaryMajorRequiredMin", requiredMinTag, "")
		}
	case models.MajorMinor:
		if in.MinorRequiredMin > in.MinorCredits {
			sl.ReportError(in.MinorRequiredMin, "minorRequiredMin", "MinorRequiredMin", requiredMinTag, "")
		}
	}
}

// Apply copies the input onto a requirement record. Targets for tracks the
// major type does not use are zeroed.
func (in RequirementInput) Apply(g *models.GraduationRequirement) {
	g.MajorType = in.MajorType
	g.RequirementTargets = models.RequirementTargets{
		TotalCredits:            in.TotalCredits,
		PrimaryMajorCredits:     in.PrimaryMajorCredits,
		PrimaryMajorRequiredMin: in.PrimaryMajorRequiredMin,
		GeneralCredits:          in.GeneralCredits,
	}
	g.EarnedOffsets = models.EarnedOffsets{
		EarnedTotalCredits:                in.EarnedTotalCredits,
		EarnedPrimaryMajorCredits:         in.EarnedPrimaryMajorCredits,
		EarnedPrimaryMajorRequiredCredits: in.EarnedPrimaryMajorRequiredCredits,
		EarnedGeneralCredits:              in.EarnedGeneralCredits,
	}
	switch in.MajorType {
	case models.MajorDouble:
		g.SecondaryMajorCredits = in.SecondaryMajorCredits
		g.SecondaryMajorRequiredMin = in.SecondaryMajorRequiredMin
		g.EarnedSecondaryMajorCredits = in.EarnedSecondaryMajorCredits
		g.EarnedSecondaryRequiredCredits = in.EarnedSecondaryRequiredCredits
	case models.MajorMinor:
		g.MinorCredits = in.MinorCredits
		g.MinorRequiredMin = in.MinorRequiredMin
		g.EarnedMinorCredits = in.EarnedMinorCredits
		g.EarnedMinorRequiredCredits = in.EarnedMinorRequiredCredits
	}
}
