package agent

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"meister-eder/domain"
	"meister-eder/validation"
)

// stepFields maps each collection step to the field paths it is responsible
// for. A step is satisfied when none of its fields carries a blocking
// violation and all are present.
var stepFields = map[domain.FlowStep][]string{
	domain.StepCollectChild:        {"child.fullName", "child.dateOfBirth"},
	domain.StepCollectBooking:      {"booking.playgroupTypes", "booking.selectedDays"},
	domain.StepCollectSpecialNeeds: {"child.specialNeeds"},
	domain.StepCollectParent: {
		"parentGuardian.fullName", "parentGuardian.streetAddress", "parentGuardian.postalCode",
		"parentGuardian.city", "parentGuardian.phone", "parentGuardian.email",
	},
	domain.StepCollectEmergency: {"emergencyContact.fullName", "emergencyContact.phone"},
}

// stepSatisfied reports whether a step's own fields are collected and free
// of blocking violations.
func stepSatisfied(step domain.FlowStep, violations []validation.Violation) bool {
	fields, ok := stepFields[step]
	if !ok {
		// GREETING is satisfied by any inbound message; CONFIRM only exits
		// through the explicit confirm transition.
		return step == domain.StepGreeting
	}
	blocking := validation.Blocking(violations)
	return !lo.ContainsBy(blocking, func(v validation.Violation) bool {
		return lo.Contains(fields, v.Field)
	})
}

// NextStep walks the collection sequence forward from the current step,
// skipping every step whose fields are already satisfied. It never moves
// backward and stops at CONFIRM.
func NextStep(current domain.FlowStep, violations []validation.Violation) domain.FlowStep {
	idx := lo.IndexOf(domain.StepOrder, current)
	if idx < 0 {
		return current
	}
	for idx < len(domain.StepOrder)-1 && stepSatisfied(domain.StepOrder[idx], violations) {
		idx++
	}
	return domain.StepOrder[idx]
}

// CorrectivePrompt renders the single violation surfaced this turn, in
// fixed schema order, or "" when the draft is clean.
func CorrectivePrompt(violations []validation.Violation) string {
	v := validation.First(violations)
	if v == nil {
		return ""
	}
	return v.Message
}

// ApplyUpdates merges extracted field values into the draft. Merge only:
// absent keys leave fields untouched, so a correction can never wipe
// downstream data.
func ApplyUpdates(state *domain.ConversationState, updates map[string]interface{}) {
	reg := &state.Registration
	for path, value := range updates {
		if value == nil {
			continue
		}
		switch path {
		case "child.fullName":
			reg.Child.FullName = asString(value)
		case "child.dateOfBirth":
			reg.Child.DateOfBirth = asString(value)
		case "child.specialNeeds":
			reg.Child.SpecialNeeds = asString(value)
		case "parentGuardian.fullName":
			reg.ParentGuardian.FullName = asString(value)
			state.ParentName = reg.ParentGuardian.FullName
		case "parentGuardian.streetAddress":
			reg.ParentGuardian.StreetAddress = asString(value)
		case "parentGuardian.postalCode":
			reg.ParentGuardian.PostalCode = asString(value)
		case "parentGuardian.city":
			reg.ParentGuardian.City = asString(value)
		case "parentGuardian.phone":
			reg.ParentGuardian.Phone = asString(value)
		case "parentGuardian.email":
			reg.ParentGuardian.Email = asString(value)
		case "emergencyContact.fullName":
			reg.EmergencyContact.FullName = asString(value)
		case "emergencyContact.phone":
			reg.EmergencyContact.Phone = asString(value)
		case "booking.playgroupTypes":
			if types := asTypes(value); types != nil {
				reg.Booking.PlaygroupTypes = types
			}
		case "booking.selectedDays":
			if days := asDays(value); days != nil {
				reg.Booking.SelectedDays = days
			}
		}
	}
}

// MergeBooking unions an additional booking into the existing one. Used for
// the new-registration intent: one conversation per identity, multiple
// bookings inside it.
func MergeBooking(state *domain.ConversationState, updates map[string]interface{}) {
	booking := &state.Registration.Booking
	if types := asTypes(updates["booking.playgroupTypes"]); types != nil {
		booking.PlaygroupTypes = lo.Uniq(append(booking.PlaygroupTypes, types...))
	}
	if days := asDays(updates["booking.selectedDays"]); days != nil {
		booking.SelectedDays = lo.UniqBy(append(booking.SelectedDays, days...), func(d domain.BookingDay) string {
			return fmt.Sprintf("%s/%s", d.Day, d.Type)
		})
	}
}

func asString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		// Postal codes occasionally come back as JSON numbers.
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}

func asTypes(v interface{}) []domain.PlaygroupType {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []domain.PlaygroupType
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			out = append(out, domain.PlaygroupType(s))
		}
	}
	return out
}

func asDays(v interface{}) []domain.BookingDay {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []domain.BookingDay
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		day, dayOK := m["day"].(string)
		typ, typOK := m["type"].(string)
		if dayOK && typOK {
			out = append(out, domain.BookingDay{Day: domain.Weekday(day), Type: domain.PlaygroupType(typ)})
		}
	}
	return out
}

// buildRecord freezes the draft into an immutable record. The store assigns
// the version.
func buildRecord(state *domain.ConversationState, now time.Time) domain.RegistrationRecord {
	return domain.RegistrationRecord{
		RegistrationData: state.Registration,
		Metadata: domain.Metadata{
			SubmittedAt:    now,
			Channel:        state.Channel,
			ConversationID: state.Identity,
			Language:       state.Language,
		},
	}
}
