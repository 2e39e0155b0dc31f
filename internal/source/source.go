// Package source defines the contract the gateway requires of the external
// event source: it accepts subscription registrations and pushes outbound
// events, each paired with its dispatch target, onto a notification stream
// the broadcast router drains.
package source

import (
	"github.com/relayforge/realtime/internal/event"
	"github.com/relayforge/realtime/internal/session"
)

// Interest describes what a subscriber wants from the event source: which
// event types, optional field filters, and the channel set derived from the
// subscriber's session at registration time.
type Interest struct {
	EventTypes []string
	Filters    map[string]string
	Channels   []session.Channel
}

// EventSource is the upstream event-production component. Subscribe and
// Unsubscribe are fallible, bounded calls with no internal retry; retry
// policy belongs to the caller.
type EventSource interface {
	// Subscribe registers an interest and returns its subscription id.
	Subscribe(interest Interest) (string, error)

	// Unsubscribe releases a subscription. Releasing an unknown or already
	// expired id is not an error.
	Unsubscribe(id string) error

	// Notifications is the stream of outbound events the router drains.
	Notifications() <-chan event.Envelope
}
