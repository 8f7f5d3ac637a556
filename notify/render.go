package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"meister-eder/domain"
	"meister-eder/validation"
)

// Monthly fees in CHF: indoor scales with weekly days, outdoor is flat.
func monthlyFee(booking domain.Booking) string {
	indoorDays := lo.CountBy(booking.SelectedDays, func(d domain.BookingDay) bool { return d.Type == domain.Indoor })
	outdoorDays := lo.CountBy(booking.SelectedDays, func(d domain.BookingDay) bool { return d.Type == domain.Outdoor })

	fee := 0
	switch {
	case indoorDays >= 3:
		fee += 390
	case indoorDays == 2:
		fee += 260
	case indoorDays == 1:
		fee += 130
	}
	if outdoorDays >= 1 {
		fee += 250
	}
	return fmt.Sprintf("CHF %d.-", fee)
}

func formatDOB(dob string) string {
	t, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return dob
	}
	return t.Format("02.01.2006")
}

func formatAge(dob string, now time.Time) string {
	t, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return dob
	}
	years := validation.AgeYears(t, now)
	months := (int(now.Month()) - int(t.Month()) + 12) % 12
	return fmt.Sprintf("%d years, %d months", years, months)
}

func formatTypes(types []domain.PlaygroupType, labels map[string]string) string {
	hasIndoor := lo.Contains(types, domain.Indoor)
	hasOutdoor := lo.Contains(types, domain.Outdoor)
	switch {
	case hasIndoor && hasOutdoor:
		return labels["indoor"] + " + " + labels["outdoor"]
	case hasIndoor:
		return labels["indoor"]
	case hasOutdoor:
		return labels["outdoor"]
	}
	return "Playgroup"
}

func formatDays(days []domain.BookingDay, labels map[string]string) string {
	return strings.Join(lo.Map(days, func(d domain.BookingDay, _ int) string {
		label, ok := labels[string(d.Day)]
		if !ok {
			label = string(d.Day)
		}
		return fmt.Sprintf("%s (%s)", label, d.Type)
	}), ", ")
}

// adminSubject builds the admin notification subject line.
func adminSubject(rec *domain.RegistrationRecord, updated bool) string {
	label := formatTypes(rec.Booking.PlaygroupTypes, english.TypeLabels)
	if updated {
		return fmt.Sprintf("Updated Registration (v%d): %s for %s", rec.Metadata.Version, rec.Child.FullName, label)
	}
	return fmt.Sprintf("New Registration: %s for %s", rec.Child.FullName, label)
}

// adminBody renders the fixed-layout plain-text body the leaders receive.
func adminBody(rec *domain.RegistrationRecord, changes map[string]domain.FieldChange) string {
	now := rec.Metadata.SubmittedAt
	pg := rec.ParentGuardian
	ec := rec.EmergencyContact

	var b strings.Builder
	rule := strings.Repeat("=", 47) + "\n"
	thin := strings.Repeat("-", 47) + "\n"

	title := "NEW PLAYGROUP REGISTRATION"
	if len(changes) > 0 {
		title = "UPDATED PLAYGROUP REGISTRATION"
	}
	b.WriteString(rule + title + "\n" + rule + "\n")
	fmt.Fprintf(&b, "Submitted:       %s at %s UTC\n", now.Format("02.01.2006"), now.Format("15:04"))
	fmt.Fprintf(&b, "Channel:         %s\n", rec.Metadata.Channel)
	fmt.Fprintf(&b, "Conversation:    %s\n", rec.Metadata.ConversationID)
	fmt.Fprintf(&b, "Version:         %d\n\n", rec.Metadata.Version)

	b.WriteString(thin + "CHILD INFORMATION\n" + thin)
	fmt.Fprintf(&b, "Name:            %s\n", rec.Child.FullName)
	fmt.Fprintf(&b, "Date of Birth:   %s (Age: %s)\n", formatDOB(rec.Child.DateOfBirth), formatAge(rec.Child.DateOfBirth, now))
	fmt.Fprintf(&b, "Special Needs:   %s\n\n", rec.Child.SpecialNeeds)

	b.WriteString(thin + "PLAYGROUP SELECTION\n" + thin)
	fmt.Fprintf(&b, "Type:            %s\n", formatTypes(rec.Booking.PlaygroupTypes, english.TypeLabels))
	fmt.Fprintf(&b, "Days:            %s\n\n", formatDays(rec.Booking.SelectedDays, english.DayLabels))
	fmt.Fprintf(&b, "Monthly Fee:     %s\n", monthlyFee(rec.Booking))
	b.WriteString("(Plus CHF 80 registration fee if first enrolment)\n\n")

	b.WriteString(thin + "PARENT / GUARDIAN\n" + thin)
	fmt.Fprintf(&b, "Name:            %s\n", pg.FullName)
	fmt.Fprintf(&b, "Address:         %s\n", pg.StreetAddress)
	fmt.Fprintf(&b, "                 %s %s\n", pg.PostalCode, pg.City)
	fmt.Fprintf(&b, "Phone:           %s\n", pg.Phone)
	fmt.Fprintf(&b, "Email:           %s\n\n", pg.Email)

	b.WriteString(thin + "EMERGENCY CONTACT\n" + thin)
	fmt.Fprintf(&b, "Name:            %s\n", ec.FullName)
	fmt.Fprintf(&b, "Phone:           %s\n\n", ec.Phone)

	if len(changes) > 0 {
		b.WriteString(thin + "CHANGES\n" + thin)
		paths := lo.Keys(changes)
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Fprintf(&b, "%-30s %q -> %q\n", path+":", changes[path].Old, changes[path].New)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\nThis registration was submitted via the automated registration assistant.\n")
	return b.String()
}

// parentBody renders the localized confirmation the parent receives.
func parentBody(rec *domain.RegistrationRecord, s Strings) string {
	var b strings.Builder
	name := rec.ParentGuardian.FullName
	if name == "" {
		name = rec.ParentGuardian.Email
	}
	fmt.Fprintf(&b, s.Greeting+"\n\n", name)
	b.WriteString(s.Intro + "\n\n")
	fmt.Fprintf(&b, "%s: %s (%s)\n", s.ChildSection, rec.Child.FullName, formatDOB(rec.Child.DateOfBirth))
	fmt.Fprintf(&b, "%s: %s - %s\n\n", s.BookingSection,
		formatTypes(rec.Booking.PlaygroupTypes, s.TypeLabels),
		formatDays(rec.Booking.SelectedDays, s.DayLabels))
	b.WriteString(s.FeeSection + ":\n")
	fmt.Fprintf(&b, s.MonthlyFee+"\n", monthlyFee(rec.Booking))
	b.WriteString(s.RegistrationFee + "\n\n")
	b.WriteString(s.Outro + "\n")
	return b.String()
}

// escalationBody renders the admin-only loop alert.
func escalationBody(identity, reason string) string {
	return fmt.Sprintf(
		"The registration assistant stopped replying to %s.\n\nReason: %s\n\n"+
			"No further replies will be sent to this address. Review the conversation and intervene manually if needed.\n",
		identity, reason)
}
