package billing

import "strings"

// EventKind is the closed set of provider notification types this system
// acts on. Anything else parses to EventUnknown and is deliberately a no-op,
// since the provider's event catalog evolves independently.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventSignupSuccess
	EventSignupFailure
	EventStateChange
	EventProductChange
	EventPaymentSuccess
	EventPaymentFailure
	EventTest
)

const (
	eventNameSignupSuccess  = "signup_success"
	eventNameSignupFailure  = "signup_failure"
	eventNameStateChange    = "subscription_state_change"
	eventNameProductChange  = "subscription_product_change"
	eventNamePaymentSuccess = "payment_success"
	eventNamePaymentFailure = "payment_failure"
	eventNameTest           = "test"
)

// ParseEventKind maps a provider event type string to its kind.
func ParseEventKind(eventType string) EventKind {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case eventNameSignupSuccess:
		return EventSignupSuccess
	case eventNameSignupFailure:
		return EventSignupFailure
	case eventNameStateChange:
		return EventStateChange
	case eventNameProductChange:
		return EventProductChange
	case eventNamePaymentSuccess:
		return EventPaymentSuccess
	case eventNamePaymentFailure:
		return EventPaymentFailure
	case eventNameTest:
		return EventTest
	}
	return EventUnknown
}

func (k EventKind) String() string {
	switch k {
	case EventSignupSuccess:
		return eventNameSignupSuccess
	case EventSignupFailure:
		return eventNameSignupFailure
	case EventStateChange:
		return eventNameStateChange
	case EventProductChange:
		return eventNameProductChange
	case EventPaymentSuccess:
		return eventNamePaymentSuccess
	case EventPaymentFailure:
		return eventNamePaymentFailure
	case EventTest:
		return eventNameTest
	}
	return "unknown"
}

// IsReplayable reports whether a duplicate webhook id is allowed to
// overwrite its ledger row (designated test replays only).
func (k EventKind) IsReplayable() bool {
	return k == EventTest
}
