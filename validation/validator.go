// Package validation implements the per-field and cross-field rule engine
// for the registration schema. Violations come back in fixed schema order
// (child → parent → emergency → booking) so the flow controller can surface
// exactly one corrective prompt per turn.
package validation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"meister-eder/domain"
)

var validate = validator.New()

type Severity string

const (
	// Error blocks completion until fixed.
	Error Severity = "error"
	// Warning is collectible but needs an explicit parent acknowledgment
	// before the registration may complete.
	Warning Severity = "warning"
)

// Violation describes one broken rule. Message is a plain description for
// the prompt builder, never shown verbatim to parents.
type Violation struct {
	Field    string
	Rule     string
	Message  string
	Severity Severity
}

var (
	nameRe   = regexp.MustCompile(`^[\p{L} ]{2,}$`)
	postalRe = regexp.MustCompile(`^\d{4}$`)
	digitRe  = regexp.MustCompile(`\d`)
	dobRe    = "2006-01-02"
)

const (
	minAgeYears = 2
	maxAgeYears = 5
)

// Validate runs every rule against the draft and returns the violations in
// schema order. An empty result means the draft may complete.
func Validate(reg domain.RegistrationData, now time.Time) []Violation {
	var out []Violation

	out = append(out, checkName("child.fullName", reg.Child.FullName)...)
	out = append(out, checkDateOfBirth(reg.Child.DateOfBirth, now)...)
	if reg.Child.SpecialNeeds == "" {
		out = append(out, missing("child.specialNeeds", "special needs answer is required; \"None\"/\"Keine\" is a valid answer"))
	}

	out = append(out, checkName("parentGuardian.fullName", reg.ParentGuardian.FullName)...)
	if reg.ParentGuardian.StreetAddress == "" {
		out = append(out, missing("parentGuardian.streetAddress", "street address is required"))
	}
	if !postalRe.MatchString(reg.ParentGuardian.PostalCode) {
		out = append(out, Violation{
			Field: "parentGuardian.postalCode", Rule: "postal_code",
			Message: "postal code must be exactly 4 digits", Severity: Error,
		})
	}
	if reg.ParentGuardian.City == "" {
		out = append(out, missing("parentGuardian.city", "city is required"))
	}
	out = append(out, checkPhone("parentGuardian.phone", reg.ParentGuardian.Phone)...)
	if err := validate.Var(reg.ParentGuardian.Email, "required,email"); err != nil {
		out = append(out, Violation{
			Field: "parentGuardian.email", Rule: "email",
			Message: "a valid email address is required", Severity: Error,
		})
	}

	out = append(out, checkName("emergencyContact.fullName", reg.EmergencyContact.FullName)...)
	out = append(out, checkPhone("emergencyContact.phone", reg.EmergencyContact.Phone)...)

	out = append(out, checkBooking(reg.Booking)...)
	return out
}

// Blocking filters out warnings; completion is gated on this being empty.
func Blocking(violations []Violation) []Violation {
	return lo.Filter(violations, func(v Violation, _ int) bool { return v.Severity == Error })
}

// Warnings returns the override-able violations (currently only age range).
func Warnings(violations []Violation) []Violation {
	return lo.Filter(violations, func(v Violation, _ int) bool { return v.Severity == Warning })
}

// First returns the violation to surface this turn, or nil.
func First(violations []Violation) *Violation {
	if len(violations) == 0 {
		return nil
	}
	return &violations[0]
}

func missing(field, message string) Violation {
	return Violation{Field: field, Rule: "required", Message: message, Severity: Error}
}

func checkName(field, value string) []Violation {
	if value == "" {
		return []Violation{missing(field, "name is required")}
	}
	if !nameRe.MatchString(value) {
		return []Violation{{
			Field: field, Rule: "name",
			Message: "name must be at least 2 characters, letters and spaces only", Severity: Error,
		}}
	}
	return nil
}

func checkPhone(field, value string) []Violation {
	if value == "" {
		return []Violation{missing(field, "phone number is required")}
	}
	if !digitRe.MatchString(value) {
		return []Violation{{
			Field: field, Rule: "phone",
			Message: "phone number must contain digits", Severity: Error,
		}}
	}
	return nil
}

func checkDateOfBirth(value string, now time.Time) []Violation {
	if value == "" {
		return []Violation{missing("child.dateOfBirth", "date of birth is required (YYYY-MM-DD)")}
	}
	dob, err := time.Parse(dobRe, value)
	if err != nil {
		return []Violation{{
			Field: "child.dateOfBirth", Rule: "date",
			Message: "date of birth must be a valid date in YYYY-MM-DD format", Severity: Error,
		}}
	}
	if !dob.Before(now) {
		return []Violation{{
			Field: "child.dateOfBirth", Rule: "date_past",
			Message: "date of birth must lie in the past", Severity: Error,
		}}
	}
	if years := AgeYears(dob, now); years < minAgeYears || years > maxAgeYears {
		return []Violation{{
			Field: "child.dateOfBirth", Rule: "age_range",
			Message:  fmt.Sprintf("child is %d years old; playgroup age is %d-%d years", years, minAgeYears, maxAgeYears),
			Severity: Warning,
		}}
	}
	return nil
}

// AgeYears computes full years between dob and now.
func AgeYears(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func checkBooking(b domain.Booking) []Violation {
	var out []Violation
	if len(b.PlaygroupTypes) == 0 {
		out = append(out, missing("booking.playgroupTypes", "at least one playgroup type (indoor/outdoor) is required"))
	}
	for _, t := range b.PlaygroupTypes {
		if t != domain.Indoor && t != domain.Outdoor {
			out = append(out, Violation{
				Field: "booking.playgroupTypes", Rule: "playgroup_type",
				Message: fmt.Sprintf("unknown playgroup type %q", t), Severity: Error,
			})
		}
	}
	if len(b.SelectedDays) == 0 {
		out = append(out, missing("booking.selectedDays", "at least one booking day is required"))
	}
	for _, d := range b.SelectedDays {
		switch d.Type {
		case domain.Indoor:
			if !lo.Contains(domain.IndoorDays, d.Day) {
				out = append(out, Violation{
					Field: "booking.selectedDays", Rule: "day_for_type",
					Message:  fmt.Sprintf("indoor playgroup does not run on %s", d.Day),
					Severity: Error,
				})
			}
		case domain.Outdoor:
			if d.Day != domain.Monday {
				out = append(out, Violation{
					Field: "booking.selectedDays", Rule: "day_for_type",
					Message:  fmt.Sprintf("outdoor playgroup runs on monday only, not %s", d.Day),
					Severity: Error,
				})
			}
		default:
			out = append(out, Violation{
				Field: "booking.selectedDays", Rule: "day_for_type",
				Message: fmt.Sprintf("unknown day type %q", d.Type), Severity: Error,
			})
		}
	}
	// Cross-field: booking outdoor implies a monday outdoor day.
	if lo.Contains(b.PlaygroupTypes, domain.Outdoor) {
		hasMonday := lo.ContainsBy(b.SelectedDays, func(d domain.BookingDay) bool {
			return d.Type == domain.Outdoor && d.Day == domain.Monday
		})
		if !hasMonday {
			out = append(out, Violation{
				Field: "booking.selectedDays", Rule: "outdoor_requires_monday",
				Message:  "booking the outdoor playgroup requires the monday outdoor day",
				Severity: Error,
			})
		}
	}
	return out
}
