package mailbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifier_AutomatedLocalParts(t *testing.T) {
	req := require.New(t)
	c, err := NewClassifier()
	req.NoError(err)

	for _, sender := range []string{
		"mailer-daemon@googlemail.com",
		"MAILER-DAEMON@example.com",
		"postmaster@example.com",
		"noreply@example.com",
		"No-Reply@shop.example.com",
		"donotreply@example.com",
		"bounce@list.example.com",
	} {
		res := c.Classify(Header{}, sender, "anything")
		req.True(res.IsAutomated, "expected %s to be automated", sender)
		req.NotEmpty(res.Reason)
	}

	req.False(c.Classify(Header{}, "maria@example.com", "Anmeldung").IsAutomated)
}

func TestClassifier_Headers(t *testing.T) {
	c, err := NewClassifier()
	require.NoError(t, err)

	tests := []struct {
		name      string
		headers   map[string]string
		automated bool
	}{
		{"auto-submitted auto-replied", map[string]string{"Auto-Submitted": "auto-replied"}, true},
		{"auto-submitted auto-generated", map[string]string{"auto-submitted": "auto-generated"}, true},
		{"auto-submitted no clears the flag", map[string]string{"Auto-Submitted": "no"}, false},
		{"auto-submitted No with case", map[string]string{"Auto-Submitted": " No "}, false},
		{"x-auto-response-suppress present", map[string]string{"X-Auto-Response-Suppress": "All"}, true},
		{"x-auto-response-suppress empty value still counts", map[string]string{"X-Auto-Response-Suppress": ""}, true},
		{"multipart report content type", map[string]string{"Content-Type": "multipart/report; report-type=delivery-status"}, true},
		{"plain content type", map[string]string{"Content-Type": "text/plain; charset=utf-8"}, false},
		{"x-loop present", map[string]string{"X-Loop": "spielgruppe@example.com"}, true},
		{"precedence bulk", map[string]string{"Precedence": "bulk"}, true},
		{"precedence junk", map[string]string{"Precedence": "junk"}, true},
		{"precedence list is not automated", map[string]string{"Precedence": "list"}, false},
		{"no headers at all", map[string]string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(NewHeader(tt.headers), "maria@example.com", "Hallo")
			require.Equal(t, tt.automated, res.IsAutomated)
		})
	}
}

func TestClassifier_SubjectPatterns(t *testing.T) {
	c, err := NewClassifier()
	require.NoError(t, err)

	tests := []struct {
		subject   string
		automated bool
	}{
		{"Undelivered Mail Returned to Sender", true},
		{"Undeliverable: Anmeldung Spielgruppe", true},
		{"Delivery Status Notification (Failure)", true},
		{"Out of Office: Re: Anmeldung", true},
		{"OUT-OF-OFFICE!!!", true},
		{"Automatic reply: Anmeldung", true},
		{"Abwesenheitsnotiz", true},
		{"Automatische Antwort: Ihre Anfrage", true},
		{"Mail unzustellbar", true},
		{"Anmeldung für Anna", false},
		{"Frage zu den Kosten", false},
		{"Re: Anmeldebestätigung", false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			res := c.Classify(Header{}, "maria@example.com", tt.subject)
			require.Equal(t, tt.automated, res.IsAutomated)
		})
	}
}

// The local-part rule outranks everything: a mailer-daemon message with
// Auto-Submitted: no is still automated.
func TestClassifier_PriorityOrder(t *testing.T) {
	req := require.New(t)
	c, err := NewClassifier()
	req.NoError(err)

	res := c.Classify(NewHeader(map[string]string{"Auto-Submitted": "no"}), "mailer-daemon@example.com", "Hallo")
	req.True(res.IsAutomated)
	req.Contains(res.Reason, "local-part")
}
