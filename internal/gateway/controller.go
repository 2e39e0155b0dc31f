package gateway

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/relayforge/realtime/internal/auth"
	"github.com/relayforge/realtime/internal/event"
	"github.com/relayforge/realtime/internal/session"
)

// Controller drives per-connection state transitions. A connection is
// Connected once the transport reports it, Authenticated once a credential
// verifies, and Closed after disconnect cleanup ran. Cleanup runs exactly
// once per connection regardless of the state it came from.
type Controller struct {
	store     *session.Store
	transport Transport
	verifier  auth.Verifier
	bridge    *Bridge

	mu   sync.Mutex
	live map[string]struct{}
}

func NewController(store *session.Store, transport Transport, verifier auth.Verifier, bridge *Bridge) *Controller {
	return &Controller{
		store:     store,
		transport: transport,
		verifier:  verifier,
		bridge:    bridge,
		live:      make(map[string]struct{}),
	}
}

// Connect registers a transport-open connection. The connection carries no
// session until it authenticates.
func (c *Controller) Connect(connID string) {
	c.mu.Lock()
	c.live[connID] = struct{}{}
	c.mu.Unlock()
	log.Printf("connection open: %s", connID)
}

// Authenticate verifies token and attaches a session to connID. On failure
// the connection stays open and only that connection is told; on success the
// identity-derived channels are joined. Re-authentication replaces the
// session: memberships derived from the previous identity are left first so
// nothing accumulates, and a subscription held by the previous session is
// released.
func (c *Controller) Authenticate(connID, token string) {
	claims, err := c.verifier.Verify(token)
	if err != nil {
		c.send(connID, "authentication_error", map[string]any{"message": "Invalid token"})
		return
	}

	if prev, ok := c.store.Get(connID); ok {
		for _, ch := range session.DeriveChannels(prev) {
			c.transport.LeaveChannel(connID, ch)
		}
		c.bridge.Unsubscribe(prev.SubscriptionID)
	}

	sess := &session.Session{
		UserID:         claims.ID,
		AgentID:        claims.AgentID,
		OrganizationID: claims.OrganizationID,
		Roles:          claims.Roles,
	}
	c.store.Put(connID, sess)
	for _, ch := range session.DeriveChannels(sess) {
		c.transport.JoinChannel(connID, ch)
	}

	c.send(connID, "authenticated", sess)
	log.Printf("connection %s authenticated (user=%s agent=%s org=%s)",
		connID, sess.UserID, sess.AgentID, sess.OrganizationID)
}

// JoinCampaign adds an explicit, client-requested campaign membership.
// Allowed for any authenticated connection; there is no authorization check
// beyond that.
func (c *Controller) JoinCampaign(connID, campaignID string) {
	if _, ok := c.store.Get(connID); !ok {
		c.send(connID, "error", map[string]any{"message": "Not authenticated"})
		return
	}
	c.transport.JoinChannel(connID, session.CampaignChannel(campaignID))
	c.send(connID, "joined_campaign", map[string]any{"campaignId": campaignID})
}

// LeaveCampaign removes a campaign membership. Leaving a campaign never
// joined is a no-op.
func (c *Controller) LeaveCampaign(connID, campaignID string) {
	if _, ok := c.store.Get(connID); !ok {
		c.send(connID, "error", map[string]any{"message": "Not authenticated"})
		return
	}
	c.transport.LeaveChannel(connID, session.CampaignChannel(campaignID))
	c.send(connID, "left_campaign", map[string]any{"campaignId": campaignID})
}

// Subscribe registers event interest for connID through the bridge and
// reports the outcome to that connection alone.
func (c *Controller) Subscribe(connID string, eventTypes []string, filters map[string]string) {
	id, err := c.bridge.Subscribe(connID, eventTypes, filters)
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		c.send(connID, "error", map[string]any{"message": "Not authenticated"})
	case err != nil:
		c.send(connID, "subscription_error", map[string]any{"message": err.Error()})
	default:
		c.send(connID, "subscribed", map[string]any{
			"subscriptionId": id,
			"eventTypes":     eventTypes,
		})
	}
}

// Ping confirms liveness in any state and echoes the current timestamp. It
// never changes connection state.
func (c *Controller) Ping(connID string) {
	c.send(connID, "pong", map[string]any{
		"timestamp": event.FormatTimestamp(time.Now()),
	})
}

// Disconnect runs terminal cleanup for connID: release a held subscription,
// then drop the session. Guarded so a second disconnect for the same
// connection does nothing.
func (c *Controller) Disconnect(connID string) {
	c.mu.Lock()
	_, ok := c.live[connID]
	delete(c.live, connID)
	c.mu.Unlock()
	if !ok {
		return
	}

	if sess, found := c.store.Get(connID); found && sess.SubscriptionID != "" {
		c.bridge.Unsubscribe(sess.SubscriptionID)
	}
	c.store.Remove(connID)
	log.Printf("connection closed: %s", connID)
}

// Maintenance notifies every open connection and then force-disconnects them
// all.
func (c *Controller) Maintenance(message string) {
	conns := c.transport.OpenConnections()
	for _, connID := range conns {
		c.send(connID, "maintenance", map[string]any{"message": message})
	}
	for _, connID := range conns {
		c.transport.Disconnect(connID)
	}
}

func (c *Controller) send(connID, eventName string, payload any) {
	if err := c.transport.Send(connID, eventName, payload); err != nil {
		log.Printf("send %s to %s: %v", eventName, connID, err)
	}
}
