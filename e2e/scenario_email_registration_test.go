package e2e

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"meister-eder/domain"
	"meister-eder/mailbox"
)

type testEmailRegistrationSuite struct {
	BaseSuite
}

func TestEmailRegistrationSuite(t *testing.T) {
	suite.Run(t, &testEmailRegistrationSuite{})
}

func llm(reply, intent, updates string, complete bool) string {
	return fmt.Sprintf(`{"reply": %q, "intent": %q, "updates": %s, "registration_complete": %t, "language": "de"}`,
		reply, intent, updates, complete)
}

// Drives a complete registration over the email channel: greeting, a fee
// question answered from the knowledge base, field collection, an automated
// out-of-office in the middle, confirmation, and a post-completion update.
func (s *testEmailRegistrationSuite) TestFullRegistrationScenario() {
	parent := "maria@example.com"

	s.Step("Parent opens the conversation")
	s.Provider.push(llm("Grüezi! Wie heisst dein Kind und wann ist es geboren?", "field-updates", `{}`, false))
	sent := s.Deliver("Maria Muster <Maria@Example.com>", "Anmeldung Spielgruppe",
		"Grüezi, ich möchte meine Tochter für die Spielgruppe anmelden.", "<m1@example.com>")
	s.Require().Len(sent, 1)
	s.Require().Equal([]string{parent}, sent[0].To)
	s.Require().Equal("Re: Anmeldung Spielgruppe", sent[0].Subject)
	s.Require().Equal("<m1@example.com>", sent[0].InReplyTo)
	s.Require().Empty(sent[0].ReplyTo)

	s.Step("Parent asks about fees mid-flow")
	s.Provider.push(llm("Die Innenspielgruppe kostet CHF 130 pro Monat für einen Tag. Wie heisst dein Kind?", "question", `{}`, false))
	sent = s.Deliver(parent, "Re: Anmeldung Spielgruppe", "Was kostet die Spielgruppe eigentlich?", "<m2@example.com>")
	s.Require().Len(sent, 1)
	s.Require().Contains(sent[0].Body, "CHF 130")

	s.Step("Parent provides child and booking data")
	s.Provider.push(
		llm("Danke! Hat Anna besondere Bedürfnisse?", "field-updates",
			`{"child.fullName": "Anna Muster", "child.dateOfBirth": "2023-03-15", "booking.playgroupTypes": ["indoor"], "booking.selectedDays": [{"day":"wednesday","type":"indoor"}]}`, false),
		llm("Gut. Nun deine Kontaktdaten bitte.", "field-updates", `{"child.specialNeeds": "Keine"}`, false),
	)
	s.Deliver(parent, "Re: Anmeldung Spielgruppe",
		"Anna Muster, geboren 2023-03-15. Innenspielgruppe am Mittwoch.", "<m3@example.com>")
	s.Deliver(parent, "Re: Anmeldung Spielgruppe", "Nein, keine besonderen Bedürfnisse.", "<m4@example.com>")

	s.Step("An out-of-office auto-reply arrives and is silently escalated")
	s.Transport.enqueue(mailbox.InboundEmail{
		From:      "noreply@some-company.com",
		Subject:   "Automatic reply: Anmeldung",
		MessageID: "<auto@some-company.com>",
		Headers:   mailbox.NewHeader(map[string]string{"Auto-Submitted": "auto-replied"}),
		Body:      "I am out of office until next week.",
		RawBody:   "I am out of office until next week.",
	})
	_, err := s.Poller.RunCycle(s.T().Context())
	s.Require().NoError(err)
	autoSent := s.Transport.drain()
	s.Require().Len(autoSent, 1, "only the admin alert, never a reply to the automated sender")
	s.Require().Equal([]string{adminAddr}, autoSent[0].To)

	s.Step("Parent completes contact and emergency data")
	s.Provider.push(
		llm("Danke! Und ein Notfallkontakt?", "field-updates",
			`{"parentGuardian.fullName": "Maria Muster", "parentGuardian.streetAddress": "Bahnhofstrasse 12", "parentGuardian.postalCode": "8610", "parentGuardian.city": "Uster", "parentGuardian.phone": "079 123 45 67", "parentGuardian.email": "maria@example.com"}`, false),
		llm("Hier die Zusammenfassung. Stimmt alles?", "field-updates",
			`{"emergencyContact.fullName": "Peter Muster", "emergencyContact.phone": "044 987 65 43"}`, false),
	)
	s.Deliver(parent, "Re: Anmeldung Spielgruppe",
		"Maria Muster, Bahnhofstrasse 12, 8610 Uster, 079 123 45 67, maria@example.com", "<m5@example.com>")
	s.Deliver(parent, "Re: Anmeldung Spielgruppe", "Notfallkontakt: Peter Muster, 044 987 65 43", "<m6@example.com>")

	s.Step("Parent confirms: version 1 is written, admins and parent are notified")
	s.Provider.push(llm("Wunderbar, die Anmeldung ist abgeschlossen!", "confirm", `{}`, true))
	sent = s.Deliver(parent, "Re: Anmeldung Spielgruppe", "Ja, alles korrekt!", "<m7@example.com>")

	// Three mails this cycle: indoor leader + admin CC + parent confirmation,
	// plus the conversational reply.
	s.Require().Len(sent, 4)
	byRecipient := map[string]mailbox.OutboundEmail{}
	for _, msg := range sent {
		byRecipient[msg.To[0]] = msg
	}
	s.Require().Contains(byRecipient, indoorAddr)
	s.Require().Contains(byRecipient, adminAddr)
	s.Require().NotContains(byRecipient, outdoorAddr)

	adminMail := byRecipient[indoorAddr]
	s.Require().Contains(adminMail.Body, "Anna Muster")
	s.Require().Contains(adminMail.Body, "CHF 130.-")
	s.Require().Equal(parent, adminMail.ReplyTo, "leaders answer the parent directly")

	confirmation := byRecipient[parent]
	s.Require().Equal(adminAddr, confirmation.ReplyTo, "confirmation questions go to the admin")

	current, err := s.Store.Current(parent)
	s.Require().NoError(err)
	s.Require().Equal(1, current.Metadata.Version)
	s.Require().True(current.IsComplete())
	s.Require().Equal(domain.ChannelEmail, current.Metadata.Channel)

	s.Step("Weeks later the parent books an additional day")
	s.Provider.push(
		llm("Gern! Donnerstag ist dazugebucht. Passt das so?", "update-request",
			`{"booking.selectedDays": [{"day":"wednesday","type":"indoor"}, {"day":"thursday","type":"indoor"}]}`, false),
		llm("Erledigt, die Änderung ist gespeichert!", "confirm", `{}`, true),
	)
	s.Deliver(parent, "Re: Anmeldung Spielgruppe",
		"Können wir zusätzlich den Donnerstag buchen?", "<m8@example.com>")
	sent = s.Deliver(parent, "Re: Anmeldung Spielgruppe", "Ja, bitte!", "<m9@example.com>")

	// Update notification to the leader plus admin CC plus the reply.
	s.Require().Len(sent, 3)

	current, err = s.Store.Current(parent)
	s.Require().NoError(err)
	s.Require().Equal(2, current.Metadata.Version)
	s.Require().Len(current.Booking.SelectedDays, 2)
	s.Require().Contains(current.Metadata.ChangeSummary, "booking.selectedDays")

	history, err := s.Store.History(parent)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Require().Len(history[0].Booking.SelectedDays, 1, "version 1 stays immutable")
}
