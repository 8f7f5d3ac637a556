package notify

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"meister-eder/domain"
	"meister-eder/mailbox"
	"meister-eder/mocks"
)

var testLog = logs.GetLoggerFromLevel(slog.LevelError)

const (
	fromAddr    = "spielgruppe@example.com"
	indoorAddr  = "indoor-leader@example.com"
	outdoorAddr = "outdoor-leader@example.com"
	adminAddr   = "admin@example.com"
)

func record(types ...domain.PlaygroupType) *domain.RegistrationRecord {
	days := []domain.BookingDay{}
	for _, t := range types {
		if t == domain.Indoor {
			days = append(days, domain.BookingDay{Day: domain.Wednesday, Type: domain.Indoor})
		} else {
			days = append(days, domain.BookingDay{Day: domain.Monday, Type: domain.Outdoor})
		}
	}
	return &domain.RegistrationRecord{
		RegistrationData: domain.RegistrationData{
			Child:   domain.ChildInfo{FullName: "Anna Muster", DateOfBirth: "2023-03-15", SpecialNeeds: "Keine"},
			Booking: domain.Booking{PlaygroupTypes: types, SelectedDays: days},
			ParentGuardian: domain.ParentGuardian{
				FullName: "Maria Muster", StreetAddress: "Bahnhofstrasse 12",
				PostalCode: "8610", City: "Uster", Phone: "079 123 45 67", Email: "maria@example.com",
			},
			EmergencyContact: domain.EmergencyContact{FullName: "Peter Muster", Phone: "044 987 65 43"},
		},
		Metadata: domain.Metadata{
			Version:     1,
			SubmittedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
			Channel:     domain.ChannelEmail,
			Language:    "de",
		},
	}
}

func newDispatcher(sender Sender) *Dispatcher {
	return NewDispatcher(sender, fromAddr, indoorAddr, outdoorAddr, []string{adminAddr}, testLog)
}

func TestDispatcher_RoutingTable(t *testing.T) {
	tests := []struct {
		name       string
		types      []domain.PlaygroupType
		recipients []string
	}{
		{"indoor goes to indoor leader plus admin", []domain.PlaygroupType{domain.Indoor}, []string{indoorAddr, adminAddr}},
		{"outdoor goes to outdoor leader plus admin", []domain.PlaygroupType{domain.Outdoor}, []string{outdoorAddr, adminAddr}},
		{"both go to both leaders plus admin", []domain.PlaygroupType{domain.Indoor, domain.Outdoor}, []string{indoorAddr, outdoorAddr, adminAddr}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			sender := mocks.NewMockSender(ctrl)

			var sent []mailbox.OutboundEmail
			sender.EXPECT().Send(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, msg mailbox.OutboundEmail) error {
					sent = append(sent, msg)
					return nil
				}).Times(len(tt.recipients))

			outcomes := newDispatcher(sender).Dispatch(context.Background(), domain.NotificationEvent{
				Kind:     domain.EventRegistrationCompleted,
				Identity: "maria@example.com",
				Language: "de",
				Record:   record(tt.types...),
			})

			req.Len(outcomes, len(tt.recipients))
			var got []string
			for _, msg := range sent {
				req.Len(msg.To, 1)
				got = append(got, msg.To[0])
				// Leaders answer the parent directly.
				req.Equal("maria@example.com", msg.ReplyTo)
			}
			req.ElementsMatch(tt.recipients, got)
		})
	}
}

func TestDispatcher_ParentConfirmationReplyToAdmin(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	var sent mailbox.OutboundEmail
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mailbox.OutboundEmail) error {
			sent = msg
			return nil
		})

	newDispatcher(sender).Dispatch(context.Background(), domain.NotificationEvent{
		Kind:     domain.EventParentConfirmation,
		Identity: "maria@example.com",
		Language: "de",
		Record:   record(domain.Indoor),
	})

	req.Equal([]string{"maria@example.com"}, sent.To)
	// Parent questions about the confirmation go to the admin, not back into
	// the agent loop.
	req.Equal(adminAddr, sent.ReplyTo)
	req.Contains(sent.Subject, "Anmeldebestätigung")
	req.Contains(sent.Body, "Anna Muster")
	req.Contains(sent.Body, "CHF 130.-")
	req.Contains(sent.Body, "CHF 80")
}

func TestDispatcher_ParentConfirmationEnglish(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	var sent mailbox.OutboundEmail
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mailbox.OutboundEmail) error {
			sent = msg
			return nil
		})

	newDispatcher(sender).Dispatch(context.Background(), domain.NotificationEvent{
		Kind:     domain.EventParentConfirmation,
		Identity: "maria@example.com",
		Language: "en",
		Record:   record(domain.Indoor),
	})

	req.Contains(sent.Subject, "Registration Confirmation")
	req.Contains(sent.Body, "Monthly fee")
}

func TestDispatcher_LoopEscalationGoesToAdminOnly(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	var sent mailbox.OutboundEmail
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mailbox.OutboundEmail) error {
			sent = msg
			return nil
		})

	outcomes := newDispatcher(sender).Dispatch(context.Background(), domain.NotificationEvent{
		Kind:     domain.EventLoopEscalation,
		Identity: "mailer-daemon@example.com",
		Reason:   "sender local-part matches automated pattern (mailer-daemon)",
	})

	req.Len(outcomes, 1)
	req.Equal([]string{adminAddr}, sent.To)
	req.Contains(sent.Body, "mailer-daemon@example.com")
	req.Contains(sent.Body, "No further replies")
}

// One failing recipient never blocks the others.
func TestDispatcher_FailureIsolation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mailbox.OutboundEmail) error {
			if msg.To[0] == indoorAddr {
				return fmt.Errorf("smtp 451 temporary failure")
			}
			return nil
		}).Times(2)

	outcomes := newDispatcher(sender).Dispatch(context.Background(), domain.NotificationEvent{
		Kind:     domain.EventRegistrationCompleted,
		Identity: "maria@example.com",
		Language: "de",
		Record:   record(domain.Indoor),
	})

	req.Len(outcomes, 2)
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			req.Equal(indoorAddr, o.Recipient)
		}
	}
	req.Equal(1, failed)
}

func TestDispatcher_UpdatedRegistrationListsChanges(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	var bodies []string
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mailbox.OutboundEmail) error {
			bodies = append(bodies, msg.Body)
			return nil
		}).Times(2)

	rec := record(domain.Indoor)
	rec.Metadata.Version = 2
	newDispatcher(sender).Dispatch(context.Background(), domain.NotificationEvent{
		Kind:     domain.EventRegistrationUpdated,
		Identity: "maria@example.com",
		Language: "de",
		Record:   rec,
		Changes: map[string]domain.FieldChange{
			"parentGuardian.phone": {Old: "079 123 45 67", New: "079 765 43 21"},
		},
	})

	for _, body := range bodies {
		req.Contains(body, "UPDATED PLAYGROUP REGISTRATION")
		req.Contains(body, "parentGuardian.phone")
		req.Contains(body, "079 765 43 21")
	}
}
