package gupshup

import "github.com/convobridge/gupshup-gateway/internal/canonical"

// mapEventState maps a Gupshup delivery-report event type to a canonical
// message state. The fallback is deliberate and total: an unrecognized
// event is treated as a delivery failure, not an error.
func mapEventState(eventType string) canonical.MessageState {
	switch eventType {
	case "SENT":
		return canonical.MessageStateSent
	case "DELIVERED":
		return canonical.MessageStateDelivered
	case "READ":
		return canonical.MessageStateRead
	default:
		return canonical.MessageStateFailedToDeliver
	}
}
