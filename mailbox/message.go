package mailbox

import (
	"fmt"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Header is a flattened view of an email's headers with case-insensitive
// lookup. Presence and value are distinct: Has reports the header exists
// even when its value is empty.
type Header map[string]string

func NewHeader(pairs map[string]string) Header {
	h := Header{}
	for k, v := range pairs {
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return h
}

func (h Header) Get(key string) string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

func (h Header) Has(key string) bool {
	_, ok := h[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}

// InboundEmail is one unread message as handed over by the transport.
// Body has quoted reply text already stripped; RawBody keeps the original
// for the outbound quote block.
type InboundEmail struct {
	From        string
	Subject     string
	MessageID   string
	InReplyTo   string
	References  string
	ContentType string
	Headers     Header
	Body        string
	RawBody     string
}

type OutboundEmail struct {
	From       string
	To         []string
	Cc         []string
	ReplyTo    string
	Subject    string
	Body       string
	MessageID  string
	InReplyTo  string
	References string
}

var (
	separatorRe = regexp.MustCompile(`^(-{3,}|_{3,}|={3,})`)
	onWroteRe   = regexp.MustCompile(`^On .+ wrote:$`)
	amSchriebRe = regexp.MustCompile(`^Am .+ schrieb .+:$`)
)

// StripQuotedText removes quoted reply content so the agent only sees what
// the parent newly wrote. Lines starting with ">" are dropped; common
// client reply separators end the message.
func StripQuotedText(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, ">") {
			continue
		}
		if separatorRe.MatchString(stripped) ||
			onWroteRe.MatchString(stripped) ||
			amSchriebRe.MatchString(stripped) ||
			strings.Contains(stripped, "-----Original Message-----") {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// BuildQuotedBlock formats the parent's original text as a classic
// ">"-prefixed quote block appended below a reply.
func BuildQuotedBlock(original, from string) string {
	header := fmt.Sprintf("Am %s schrieb %s:", time.Now().Format("Mon, 02 Jan 2006 15:04"), from)
	var quoted []string
	for _, line := range strings.Split(original, "\n") {
		quoted = append(quoted, "> "+line)
	}
	return "\n\n" + header + "\n" + strings.Join(quoted, "\n")
}

// ReplySubject prefixes "Re:" unless the subject already carries one.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// GenerateMessageID builds a fresh Message-ID under the sender's domain.
func GenerateMessageID(from string) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), Domain(NormalizeAddress(from)))
}

// BuildReply assembles the outbound reply to an inbound email, carrying the
// threading headers email clients need. No Reply-To is set: ordinary replies
// must come back to the conversation's own address so identity resolution
// keeps matching.
func BuildReply(in InboundEmail, from, body string) OutboundEmail {
	refs := []string{}
	if in.References != "" {
		refs = append(refs, in.References)
	}
	if in.MessageID != "" {
		refs = append(refs, in.MessageID)
	}
	out := OutboundEmail{
		From:       from,
		To:         []string{in.From},
		Subject:    ReplySubject(in.Subject),
		Body:       body,
		MessageID:  GenerateMessageID(from),
		InReplyTo:  in.MessageID,
		References: strings.Join(refs, " "),
	}
	if strings.TrimSpace(in.RawBody) != "" {
		out.Body += BuildQuotedBlock(in.RawBody, in.From)
	}
	return out
}
