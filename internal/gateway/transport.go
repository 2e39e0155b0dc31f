// Package gateway holds the connection lifecycle: authenticating transport
// connections into sessions, deriving and reconciling channel membership,
// bridging subscriptions to the external event source, and tearing every
// connection down exactly once.
package gateway

import (
	"errors"

	"github.com/relayforge/realtime/internal/session"
)

// ErrNotAuthenticated is returned for session-scoped operations attempted on
// a connection that has no session. Reported to the caller, never fatal.
var ErrNotAuthenticated = errors.New("not authenticated")

// Transport is the live-connection surface the gateway drives.
// Implementations own wire framing, heartbeats and reconnection; the gateway
// addresses connections only by id and never assumes a specific room
// implementation behind the membership calls.
type Transport interface {
	// OpenConnections lists every live connection id.
	OpenConnections() []string

	// Send delivers one named payload to a single connection. A failure
	// concerns that connection alone.
	Send(connID string, eventName string, payload any) error

	JoinChannel(connID string, ch session.Channel)
	LeaveChannel(connID string, ch session.Channel)

	// MembersOf lists the connections currently joined to ch.
	MembersOf(ch session.Channel) []string

	// Channels lists every channel with at least one member, including each
	// connection's implicit self-channel.
	Channels() []session.Channel

	// Disconnect forcibly closes a connection.
	Disconnect(connID string)
}
