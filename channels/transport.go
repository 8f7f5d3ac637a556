package channels

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gopkg.in/gomail.v2"

	"meister-eder/mailbox"
)

// MailTransport is the production Transport: IMAP for unread mail, SMTP for
// replies. Each FetchUnread opens a fresh session, so a crashed cycle never
// leaves a dangling connection on the server.
type MailTransport struct {
	imapAddr string
	user     string
	password string
	dialer   *gomail.Dialer
	log      *slog.Logger
}

func NewMailTransport(imapHost string, imapPort int, smtpHost string, smtpPort int, user, password string, log *slog.Logger) *MailTransport {
	return &MailTransport{
		imapAddr: fmt.Sprintf("%s:%d", imapHost, imapPort),
		user:     user,
		password: password,
		dialer:   gomail.NewDialer(smtpHost, smtpPort, user, password),
		log:      log,
	}
}

// FetchUnread downloads every unseen message from INBOX and marks it seen.
// Messages that fail to parse are skipped with a warning; an unparseable
// message would otherwise block the mailbox forever.
func (t *MailTransport) FetchUnread(ctx context.Context) ([]mailbox.InboundEmail, error) {
	c, err := client.DialTLS(t.imapAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial %s failed: %w", t.imapAddr, err)
	}
	defer func() { _ = c.Logout() }()

	if err := c.Login(t.user, t.password); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("imap select failed: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var inbound []mailbox.InboundEmail
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		parsed, err := parseInbound(body)
		if err != nil {
			t.log.Warn("Unparseable message skipped", "error", err)
			continue
		}
		inbound = append(inbound, parsed)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}

	flags := []interface{}{imap.SeenFlag}
	if err := c.Store(seqset, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		return nil, fmt.Errorf("imap flag update failed: %w", err)
	}
	return inbound, nil
}

// Send delivers one outbound reply over SMTP.
func (t *MailTransport) Send(ctx context.Context, msg mailbox.OutboundEmail) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", msg.MessageID)
	if msg.InReplyTo != "" {
		m.SetHeader("In-Reply-To", msg.InReplyTo)
	}
	if msg.References != "" {
		m.SetHeader("References", msg.References)
	}
	m.SetBody("text/plain", msg.Body)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %v failed: %w", msg.To, err)
	}
	return nil
}

// parseInbound turns a raw RFC 5322 message into the transport-neutral form
// the classifier and agent consume. Only the first text/plain part is kept.
func parseInbound(r io.Reader) (mailbox.InboundEmail, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return mailbox.InboundEmail{}, err
	}

	headers := map[string]string{}
	fields := mr.Header.Fields()
	for fields.Next() {
		headers[fields.Key()] = fields.Value()
	}

	from := ""
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		from = addrs[0].Address
	}
	subject, _ := mr.Header.Subject()

	var body strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return mailbox.InboundEmail{}, err
		}
		if h, ok := part.Header.(*mail.InlineHeader); ok {
			ct, _, _ := h.ContentType()
			if ct == "text/plain" || ct == "" {
				content, err := io.ReadAll(part.Body)
				if err != nil {
					return mailbox.InboundEmail{}, err
				}
				body.Write(content)
				break
			}
		}
	}

	raw := body.String()
	return mailbox.InboundEmail{
		From:        from,
		Subject:     subject,
		MessageID:   strings.Trim(mr.Header.Get("Message-Id"), " "),
		InReplyTo:   mr.Header.Get("In-Reply-To"),
		References:  mr.Header.Get("References"),
		ContentType: mr.Header.Get("Content-Type"),
		Headers:     mailbox.NewHeader(headers),
		Body:        mailbox.StripQuotedText(raw),
		RawBody:     raw,
	}, nil
}
