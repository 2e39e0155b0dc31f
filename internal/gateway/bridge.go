package gateway

import (
	"fmt"
	"log"

	"github.com/relayforge/realtime/internal/session"
	"github.com/relayforge/realtime/internal/source"
)

// Bridge ties a connection's session to at most one live subscription at the
// external event source. The subscription id is tracked on the session in
// place, so derived state such as channel membership is preserved.
type Bridge struct {
	store *session.Store
	src   source.EventSource
}

func NewBridge(store *session.Store, src source.EventSource) *Bridge {
	return &Bridge{store: store, src: src}
}

// Subscribe registers interest for connID's session and records the returned
// subscription id on the session. Fails with ErrNotAuthenticated when the
// connection has no session. A subscription already held by the session is
// released first: the contract is one active subscription per session, so
// re-subscribing must not leak the prior registration at the event source.
func (b *Bridge) Subscribe(connID string, eventTypes []string, filters map[string]string) (string, error) {
	sess, ok := b.store.Get(connID)
	if !ok {
		return "", ErrNotAuthenticated
	}

	if sess.SubscriptionID != "" {
		b.Unsubscribe(sess.SubscriptionID)
	}

	id, err := b.src.Subscribe(source.Interest{
		EventTypes: eventTypes,
		Filters:    filters,
		Channels:   session.DeriveChannels(sess),
	})
	if err != nil {
		return "", fmt.Errorf("event source subscribe: %w", err)
	}

	if !b.store.SetSubscriptionID(connID, id) {
		// The connection disconnected between the session read and the
		// write-back; release the orphaned subscription immediately.
		b.Unsubscribe(id)
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// Unsubscribe releases id with the event source. Unknown, empty or already
// expired ids are a no-op: disconnect-triggered cleanup must not fail when
// the source dropped the subscription first.
func (b *Bridge) Unsubscribe(id string) {
	if id == "" {
		return
	}
	if err := b.src.Unsubscribe(id); err != nil {
		log.Printf("unsubscribe %s: %v", id, err)
	}
}
