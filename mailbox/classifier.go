package mailbox

import (
	"fmt"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Classification is the verdict on one inbound email. A message classified
// as automated must never receive an outbound reply of any kind.
type Classification struct {
	IsAutomated bool   `json:"is_automated"`
	Reason      string `json:"automated_reason"`
}

// automatedLocalParts are sender local-parts that only machines use.
var automatedLocalParts = []string{
	"mailer-daemon", "postmaster", "noreply", "no-reply", "donotreply", "bounce",
}

// subjectPatterns flag bounce and out-of-office subjects in English and
// German. Matching is case-insensitive and punctuation-tolerant.
var subjectPatterns = []string{
	"undelivered mail",
	"undeliverable",
	"delivery status notification",
	"delivery failure",
	"mail delivery failed",
	"returned mail",
	"failure notice",
	"out of office",
	"auto-reply",
	"autoreply",
	"automatic reply",
	"abwesenheitsnotiz",
	"automatische antwort",
	"unzustellbar",
	"abwesend",
}

// Classifier decides whether an inbound email is machine-generated. It is a
// pure function of headers, sender and subject; the Aho-Corasick machine for
// the subject pattern set is built once at construction.
type Classifier struct {
	subjects *goahocorasick.Machine
}

func NewClassifier() (Classifier, error) {
	// Normalization can collapse entries ("auto-reply" and "autoreply"), and
	// duplicate patterns must not reach the automaton.
	normalized := lo.Uniq(lo.Map(subjectPatterns, func(p string, _ int) string {
		return string(normalizeRunes(p))
	}))
	patterns := make([][]rune, len(normalized))
	for i, p := range normalized {
		patterns[i] = []rune(p)
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Classifier{}, err
	}
	return Classifier{subjects: m}, nil
}

// Classify evaluates the detection rules in strict priority order; the first
// match wins. Chat messages never pass through here: only the asynchronous
// email channel can loop.
func (c Classifier) Classify(headers Header, sender, subject string) Classification {
	local := strings.ToLower(LocalPart(NormalizeAddress(sender)))
	if lo.Contains(automatedLocalParts, local) {
		return Classification{true, fmt.Sprintf("sender local-part matches automated pattern (%s)", local)}
	}

	// RFC 3834: any Auto-Submitted value other than "no" marks an automated
	// message; "no" explicitly clears the flag.
	if v := headers.Get("Auto-Submitted"); v != "" && !strings.EqualFold(strings.TrimSpace(v), "no") {
		return Classification{true, fmt.Sprintf("Auto-Submitted: %s", strings.TrimSpace(v))}
	}

	if headers.Has("X-Auto-Response-Suppress") {
		return Classification{true, "X-Auto-Response-Suppress header present"}
	}

	// RFC 3462 delivery/read reports.
	if ct := strings.ToLower(headers.Get("Content-Type")); strings.HasPrefix(ct, "multipart/report") {
		return Classification{true, "content type is multipart/report"}
	}

	if headers.Has("X-Loop") {
		return Classification{true, "X-Loop header present"}
	}

	// Mailing lists (Precedence: list) are not automated for this purpose.
	if p := strings.ToLower(strings.TrimSpace(headers.Get("Precedence"))); p == "bulk" || p == "junk" {
		return Classification{true, fmt.Sprintf("Precedence: %s", p)}
	}

	if hits := c.subjects.MultiPatternSearch(normalizeRunes(subject), false); len(hits) > 0 {
		return Classification{true, fmt.Sprintf("subject matches automated pattern (%q)", string(hits[0].Word))}
	}

	return Classification{}
}

// normalizeRunes lowercases and strips whitespace/punctuation noise so
// "Out Of Office:" still matches "out of office".
func normalizeRunes(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}
