package admission

import (
	"sort"
	"strings"
	"time"

	"ms-registration/internal/models"
)

// Applicant is the raw applicant data as submitted, before normalization.
type Applicant struct {
	FullName       string
	TaxID          string
	Address        string
	Phone          string
	Category       models.Category
	DisabilityType string
	Notes          string
	CompanionName  string
	CompanionTaxID string
}

// Submission is a registration request for one event.
type Submission struct {
	Days []time.Time
	Applicant
}

// ApplicantDetails is normalized applicant data: trimmed text, digit-only tax IDs and
// optional fields set to nil when blank.
type ApplicantDetails struct {
	FullName       string
	TaxID          string
	Address        string
	Phone          string
	Category       models.Category
	DisabilityType *string
	Notes          *string
	CompanionName  *string
	CompanionTaxID *string
}

// Apply copies the details onto reg.
func (d ApplicantDetails) Apply(reg *models.Registration) {
	reg.FullName = d.FullName
	reg.TaxID = d.TaxID
	reg.Address = d.Address
	reg.Phone = d.Phone
	reg.Category = d.Category
	reg.DisabilityType = d.DisabilityType
	reg.Notes = d.Notes
	reg.CompanionName = d.CompanionName
	reg.CompanionTaxID = d.CompanionTaxID
}

// ValidatedRegistration is a submission that passed every rule and is ready for admission.
type ValidatedRegistration struct {
	EventID string
	// Days are distinct, truncated to the calendar date and ascending.
	Days []time.Time
	ApplicantDetails
}

func (v *ValidatedRegistration) DayKeys() []string {
	keys := make([]string, 0, len(v.Days))
	for _, d := range v.Days {
		keys = append(keys, models.DayKey(d))
	}
	return keys
}

// ValidateSubmission checks a submission against event and normalizes it. Rules are applied in
// order and the first violation is returned: no days, days out of range, applicant tax ID,
// disability type, companion tax ID, then required fields and category.
func ValidateSubmission(event *models.Event, in Submission) (*ValidatedRegistration, error) {
	days := normalizeDays(in.Days)
	if len(days) == 0 {
		return nil, ErrNoDaysSelected
	}

	var outside []time.Time
	for _, d := range days {
		if !event.Covers(d) {
			outside = append(outside, d)
		}
	}
	if len(outside) > 0 {
		return nil, dayOutOfRange(outside)
	}

	details, err := ValidateApplicant(event, in.Applicant)
	if err != nil {
		return nil, err
	}

	return &ValidatedRegistration{
		EventID:          event.ID,
		Days:             days,
		ApplicantDetails: *details,
	}, nil
}

// ValidateApplicant applies the applicant rules of a submission without the day rules. It is
// used on its own when an administrator edits a registration.
func ValidateApplicant(event *models.Event, in Applicant) (*ApplicantDetails, error) {
	if !ValidTaxID(in.TaxID) {
		return nil, ErrInvalidTaxID
	}

	disabilityType := optional(in.DisabilityType)
	if in.Category == models.CategoryDisabledPerson && disabilityType == nil {
		return nil, ErrMissingDisabilityType
	}
	if in.Category != models.CategoryDisabledPerson {
		disabilityType = nil
	}

	companionName := optional(in.CompanionName)
	companionTaxID := optional(in.CompanionTaxID)
	if !event.AllowsCompanion {
		companionName, companionTaxID = nil, nil
	}
	if companionTaxID != nil {
		if !ValidTaxID(*companionTaxID) {
			return nil, ErrInvalidCompanionTaxID
		}
		digits := DigitsOnly(*companionTaxID)
		companionTaxID = &digits
	}

	details := &ApplicantDetails{
		FullName:       strings.TrimSpace(in.FullName),
		TaxID:          DigitsOnly(in.TaxID),
		Address:        strings.TrimSpace(in.Address),
		Phone:          strings.TrimSpace(in.Phone),
		Category:       in.Category,
		DisabilityType: disabilityType,
		Notes:          optional(in.Notes),
		CompanionName:  companionName,
		CompanionTaxID: companionTaxID,
	}

	switch {
	case details.FullName == "":
		return nil, missingField("full_name")
	case details.Address == "":
		return nil, missingField("address")
	case details.Phone == "":
		return nil, missingField("phone")
	case !details.Category.Valid():
		return nil, ErrInvalidCategory
	}

	return details, nil
}

func normalizeDays(days []time.Time) []time.Time {
	seen := make(map[string]bool, len(days))
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = models.TruncateDay(d)
		key := models.DayKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
