package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func filled() RegistrationData {
	return RegistrationData{
		Child: ChildInfo{FullName: "Anna Muster", DateOfBirth: "2023-03-15", SpecialNeeds: "Keine"},
		Booking: Booking{
			PlaygroupTypes: []PlaygroupType{Indoor},
			SelectedDays:   []BookingDay{{Day: Wednesday, Type: Indoor}},
		},
		ParentGuardian: ParentGuardian{
			FullName: "Maria Muster", StreetAddress: "Bahnhofstrasse 12",
			PostalCode: "8610", City: "Uster", Phone: "079 123 45 67", Email: "maria@example.com",
		},
		EmergencyContact: EmergencyContact{FullName: "Peter Muster", Phone: "044 987 65 43"},
	}
}

func TestIsComplete(t *testing.T) {
	req := require.New(t)
	req.True(filled().IsComplete())
	req.False(RegistrationData{}.IsComplete())

	partial := filled()
	partial.EmergencyContact.Phone = ""
	req.False(partial.IsComplete())

	noDays := filled()
	noDays.Booking.SelectedDays = nil
	req.False(noDays.IsComplete())
}

func TestDiff(t *testing.T) {
	req := require.New(t)
	old := filled()
	updated := filled()
	updated.ParentGuardian.Phone = "079 765 43 21"
	updated.Booking.SelectedDays = append(updated.Booking.SelectedDays, BookingDay{Day: Thursday, Type: Indoor})

	changes := Diff(old, updated)
	req.Len(changes, 2)
	req.Equal(FieldChange{Old: "079 123 45 67", New: "079 765 43 21"}, changes["parentGuardian.phone"])
	req.Equal(
		FieldChange{Old: "wednesday(indoor)", New: "wednesday(indoor),thursday(indoor)"},
		changes["booking.selectedDays"],
	)

	req.Empty(Diff(old, old))
}

func TestEqualContent(t *testing.T) {
	req := require.New(t)
	req.True(EqualContent(filled(), filled()))

	changed := filled()
	changed.Child.SpecialNeeds = "Nussallergie"
	req.False(EqualContent(filled(), changed))
}

func TestConversationState_UserMessageCount(t *testing.T) {
	req := require.New(t)
	state := NewConversation("maria@example.com", ChannelEmail)
	req.Equal(0, state.UserMessageCount())

	state.AppendUser("hallo")
	state.AppendAssistant("grüezi")
	state.AppendUser("frage")
	req.Equal(2, state.UserMessageCount())
	req.Len(state.Messages, 3)
}

func TestNewConversation_Defaults(t *testing.T) {
	req := require.New(t)
	state := NewConversation("maria@example.com", ChannelEmail)
	req.Equal("de", state.Language)
	req.Equal(StepGreeting, state.FlowStep)
	req.False(state.Completed)
	req.False(state.LoopEscalated)
}
