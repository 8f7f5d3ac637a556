package notify

// Strings is the label table for parent-facing confirmation emails. German
// is canonical; any language outside {de, en} falls back to German.
type Strings struct {
	ConfirmationSubject string
	Greeting            string // takes the parent name
	Intro               string
	ChildSection        string
	BookingSection      string
	FeeSection          string
	MonthlyFee          string
	RegistrationFee     string
	Outro               string
	TypeLabels          map[string]string
	DayLabels           map[string]string
}

var german = Strings{
	ConfirmationSubject: "Anmeldebestätigung Spielgruppe Pumuckl",
	Greeting:            "Liebe/r %s",
	Intro:               "vielen Dank für die Anmeldung! Hier die Zusammenfassung:",
	ChildSection:        "Kind",
	BookingSection:      "Spielgruppe",
	FeeSection:          "Kosten",
	MonthlyFee:          "Monatsbeitrag: %s",
	RegistrationFee:     "Einmalige Anmeldegebühr: CHF 80",
	Outro:               "Bei Fragen kannst du einfach auf diese E-Mail antworten.\n\nHerzliche Grüsse\nSpielgruppe Pumuckl",
	TypeLabels: map[string]string{
		"indoor":  "Innenspielgruppe",
		"outdoor": "Waldspielgruppe",
	},
	DayLabels: map[string]string{
		"monday":    "Montag",
		"wednesday": "Mittwoch",
		"thursday":  "Donnerstag",
	},
}

var english = Strings{
	ConfirmationSubject: "Registration Confirmation Spielgruppe Pumuckl",
	Greeting:            "Dear %s",
	Intro:               "thank you for the registration! Here is the summary:",
	ChildSection:        "Child",
	BookingSection:      "Playgroup",
	FeeSection:          "Fees",
	MonthlyFee:          "Monthly fee: %s",
	RegistrationFee:     "One-time registration fee: CHF 80",
	Outro:               "If you have any questions, simply reply to this email.\n\nBest regards\nSpielgruppe Pumuckl",
	TypeLabels: map[string]string{
		"indoor":  "Indoor Playgroup",
		"outdoor": "Outdoor Forest Playgroup",
	},
	DayLabels: map[string]string{
		"monday":    "Monday",
		"wednesday": "Wednesday",
		"thursday":  "Thursday",
	},
}

// StringsFor returns the table for language, defaulting to German for
// anything outside the supported set.
func StringsFor(language string) Strings {
	if language == "en" {
		return english
	}
	return german
}
