package domain

// FlowStep is one state of the registration flow state machine.
type FlowStep string

const (
	StepGreeting            FlowStep = "greeting"
	StepCollectChild        FlowStep = "collect_child"
	StepCollectBooking      FlowStep = "collect_booking"
	StepCollectSpecialNeeds FlowStep = "collect_special_needs"
	StepCollectParent       FlowStep = "collect_parent"
	StepCollectEmergency    FlowStep = "collect_emergency"
	StepConfirm             FlowStep = "confirm"
	StepComplete            FlowStep = "complete"
	// StepPostComplete is the terminal side-state a conversation enters when
	// a parent writes again after completion.
	StepPostComplete FlowStep = "post_complete"
)

// StepOrder lists the collection states in schema order. COMPLETE and
// POST_COMPLETE are reached through explicit transitions, not by walking
// this list.
var StepOrder = []FlowStep{
	StepGreeting,
	StepCollectChild,
	StepCollectBooking,
	StepCollectSpecialNeeds,
	StepCollectParent,
	StepCollectEmergency,
	StepConfirm,
}

// Intent is the tagged result of the LLM's free-text classification. The
// flow controller only ever inspects this tag, never raw text.
type Intent string

const (
	IntentFieldUpdates    Intent = "field-updates"
	IntentQuestion        Intent = "question"
	IntentCorrection      Intent = "correction"
	IntentConfirm         Intent = "confirm"
	IntentUpdateRequest   Intent = "update-request"
	IntentNewRegistration Intent = "new-registration"
)
