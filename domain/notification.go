package domain

// EventKind identifies why a notification is being dispatched.
type EventKind string

const (
	EventRegistrationCompleted EventKind = "registration-completed"
	EventRegistrationUpdated   EventKind = "registration-updated"
	EventParentConfirmation    EventKind = "parent-confirmation"
	EventLoopEscalation        EventKind = "loop-escalation"
)

// NotificationEvent is transient routing input for the dispatcher. It is
// never persisted.
type NotificationEvent struct {
	Kind     EventKind
	Identity string
	Language string

	// Record is set for registration events; nil for loop escalations.
	Record *RegistrationRecord

	// Changes carries the field diff for registration-updated events.
	Changes map[string]FieldChange

	// Reason explains a loop escalation (classifier reason or cap notice).
	Reason string
}

// RecipientOutcome is the per-recipient result of one dispatch. A failed
// recipient never affects the others.
type RecipientOutcome struct {
	Recipient string
	Err       error
}
