package source

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/relayforge/realtime/internal/event"
	"github.com/relayforge/realtime/internal/session"
)

// ErrQueueFull is returned by Publish when the notification queue is at
// capacity. The publisher owns retry policy; nothing is buffered beyond the
// queue itself.
var ErrQueueFull = errors.New("notification queue full")

// Memory is an in-process EventSource: a subscription registry plus a
// bounded notification queue. It backs the demo feed and every test; a
// networked event source implements the same interface.
type Memory struct {
	mu            sync.RWMutex
	subscriptions map[string]Interest
	closed        bool

	notifications chan event.Envelope
}

func NewMemory(queueSize int) *Memory {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Memory{
		subscriptions: make(map[string]Interest),
		notifications: make(chan event.Envelope, queueSize),
	}
}

func (m *Memory) Subscribe(interest Interest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", errors.New("event source closed")
	}
	id := uuid.NewString()
	m.subscriptions[id] = interest
	return id, nil
}

func (m *Memory) Unsubscribe(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, id)
	return nil
}

// Interest returns the registered interest for id, if still active.
func (m *Memory) Interest(id string) (Interest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	interest, ok := m.subscriptions[id]
	return interest, ok
}

func (m *Memory) SubscriptionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

func (m *Memory) Notifications() <-chan event.Envelope {
	return m.notifications
}

// Publish queues an event for dispatch. channel and subscriberIDs select the
// dispatch mode; leave both empty for a global broadcast.
func (m *Memory) Publish(ev event.Event, channel session.Channel, subscriberIDs []string) error {
	// The read lock is held across the send so Close cannot close the
	// channel out from under a concurrent Publish.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.New("event source closed")
	}

	env := event.Envelope{
		Event:         ev,
		Channel:       string(channel),
		SubscriberIDs: subscriberIDs,
	}
	select {
	case m.notifications <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the notification stream. Publish and Subscribe fail afterwards;
// Unsubscribe stays a no-op.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.notifications)
}
