//go:generate go run go.uber.org/mock/mockgen -source=notifier.go -destination=../mocks/mock_sender.go -package=mocks

// Package notify routes completed-registration and loop-escalation events
// to admin and parent mailboxes. Sending is best-effort and isolated per
// recipient; a failure never rolls back the registration that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"meister-eder/domain"
	"meister-eder/mailbox"
)

// Sender is the outbound email collaborator (SMTP or a test double).
type Sender interface {
	Send(ctx context.Context, msg mailbox.OutboundEmail) error
}

// Dispatcher implements the notification routing table:
//
//	indoor booked   -> indoor leader, admin CC
//	outdoor booked  -> outdoor leader, admin CC
//	both booked     -> both leaders, admin CC
//	loop escalation -> admin CC only, never the leaders
type Dispatcher struct {
	sender       Sender
	from         string
	indoorEmail  string
	outdoorEmail string
	ccEmails     []string
	log          *slog.Logger
}

func NewDispatcher(sender Sender, from, indoorEmail, outdoorEmail string, ccEmails []string, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:       sender,
		from:         from,
		indoorEmail:  indoorEmail,
		outdoorEmail: outdoorEmail,
		ccEmails:     ccEmails,
		log:          log,
	}
}

// Dispatch sends one email per recipient and returns the per-recipient
// outcomes. Each send is attempted independently.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.NotificationEvent) []domain.RecipientOutcome {
	switch event.Kind {
	case domain.EventRegistrationCompleted:
		return d.sendAdmin(ctx, event, false)
	case domain.EventRegistrationUpdated:
		return d.sendAdmin(ctx, event, true)
	case domain.EventParentConfirmation:
		return d.sendParentConfirmation(ctx, event)
	case domain.EventLoopEscalation:
		return d.sendEscalation(ctx, event)
	default:
		d.log.Warn("Unknown notification kind", "kind", event.Kind)
		return nil
	}
}

func (d *Dispatcher) sendAdmin(ctx context.Context, event domain.NotificationEvent, updated bool) []domain.RecipientOutcome {
	rec := event.Record
	recipients := []string{}
	if lo.Contains(rec.Booking.PlaygroupTypes, domain.Indoor) && d.indoorEmail != "" {
		recipients = append(recipients, d.indoorEmail)
	}
	if lo.Contains(rec.Booking.PlaygroupTypes, domain.Outdoor) && d.outdoorEmail != "" {
		recipients = append(recipients, d.outdoorEmail)
	}
	recipients = append(recipients, d.ccEmails...)

	// Leaders reply straight to the parent.
	return d.sendEach(ctx, recipients, mailbox.OutboundEmail{
		From:    d.from,
		Subject: adminSubject(rec, updated),
		Body:    adminBody(rec, event.Changes),
		ReplyTo: rec.ParentGuardian.Email,
	})
}

func (d *Dispatcher) sendParentConfirmation(ctx context.Context, event domain.NotificationEvent) []domain.RecipientOutcome {
	rec := event.Record
	s := StringsFor(event.Language)
	replyTo := ""
	if len(d.ccEmails) > 0 {
		replyTo = d.ccEmails[0]
	}
	// Parent questions about the confirmation go to the admin.
	return d.sendEach(ctx, []string{rec.ParentGuardian.Email}, mailbox.OutboundEmail{
		From:    d.from,
		Subject: s.ConfirmationSubject,
		Body:    parentBody(rec, s),
		ReplyTo: replyTo,
	})
}

func (d *Dispatcher) sendEscalation(ctx context.Context, event domain.NotificationEvent) []domain.RecipientOutcome {
	return d.sendEach(ctx, d.ccEmails, mailbox.OutboundEmail{
		From:    d.from,
		Subject: fmt.Sprintf("Registration assistant stopped replying to %s", event.Identity),
		Body:    escalationBody(event.Identity, event.Reason),
	})
}

// sendEach delivers the same message to every recipient as independent
// sends. Failures are logged as warnings and never abort the loop.
func (d *Dispatcher) sendEach(ctx context.Context, recipients []string, template mailbox.OutboundEmail) []domain.RecipientOutcome {
	outcomes := make([]domain.RecipientOutcome, 0, len(recipients))
	for _, recipient := range lo.Uniq(recipients) {
		msg := template
		msg.To = []string{recipient}
		msg.MessageID = mailbox.GenerateMessageID(d.from)
		err := d.sender.Send(ctx, msg)
		if err != nil {
			d.log.Warn("Notification delivery failed", "recipient", recipient, "subject", msg.Subject, "error", err)
		}
		outcomes = append(outcomes, domain.RecipientOutcome{Recipient: recipient, Err: err})
	}
	return outcomes
}
