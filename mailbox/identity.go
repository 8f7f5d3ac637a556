// Package mailbox models inbound and outbound email for the registration
// agent: identity resolution, header inspection, automated-sender
// classification and reply construction. It never talks to a server; the
// IMAP/SMTP transport is a collaborator behind channels.Transport.
package mailbox

import (
	"net/mail"
	"strings"
)

// NormalizeAddress returns the canonical identity key for a sender address:
// the addr-spec, lowercased and trimmed. "Maria <Maria@Example.com>" and
// "maria@example.com " resolve to the same key. Threading headers play no
// part in identity resolution.
func NormalizeAddress(raw string) string {
	addr := strings.TrimSpace(raw)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// LocalPart returns the part before the "@" of a normalized address.
func LocalPart(address string) string {
	if i := strings.Index(address, "@"); i >= 0 {
		return address[:i]
	}
	return address
}

// Domain returns the part after the "@", or a fallback for malformed input.
func Domain(address string) string {
	if i := strings.Index(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "meister-eder.local"
}
