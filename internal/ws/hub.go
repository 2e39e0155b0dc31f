package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relayforge/realtime/internal/session"
)

// ErrUnknownConnection is returned by Send when no connection holds the
// given id, typically because it disconnected moments earlier.
var ErrUnknownConnection = errors.New("unknown connection")

// conn is one live websocket with its buffered outbound queue. All writes go
// through writePump so the socket sees a single writer. The send channel is
// never closed; writePump exits via done, so a Send racing a Remove can
// never hit a closed channel.
type conn struct {
	id   string
	sock *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *conn) writePump() {
	defer c.sock.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.sock.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Hub implements the gateway transport over gorilla websockets. It owns the
// open-connection table and a two-sided channel membership index: byChannel
// for O(1) member fan-out, byConn so a closing connection can leave all its
// channels without a scan. Every connection is joined to an implicit
// self-channel named by its id.
type Hub struct {
	sendBuffer int

	mu        sync.RWMutex
	conns     map[string]*conn
	byChannel map[session.Channel]map[string]struct{}
	byConn    map[string]map[session.Channel]struct{}
}

func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		sendBuffer: sendBuffer,
		conns:      make(map[string]*conn),
		byChannel:  make(map[session.Channel]map[string]struct{}),
		byConn:     make(map[string]map[session.Channel]struct{}),
	}
}

// Add registers a newly upgraded socket and returns its connection id.
func (h *Hub) Add(sock *websocket.Conn) string {
	c := &conn{
		id:   uuid.NewString(),
		sock: sock,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.joinLocked(c.id, session.Channel(c.id))
	h.mu.Unlock()

	go c.writePump()
	return c.id
}

// Remove unregisters connID, drops all its channel memberships and closes
// the socket. Removing an unknown id is a no-op.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		for ch := range h.byConn[connID] {
			h.leaveLocked(connID, ch)
		}
		delete(h.byConn, connID)
	}
	h.mu.Unlock()

	if ok {
		c.close()
		c.sock.Close()
	}
}

func (h *Hub) OpenConnections() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	return ids
}

// Send queues one named payload for connID. A consumer that cannot keep up
// is disconnected rather than allowed to stall the caller.
func (h *Hub) Send(connID string, eventName string, payload any) error {
	data, err := json.Marshal(Message{Type: eventName, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventName, err)
	}

	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}

	select {
	case c.send <- data:
		return nil
	default:
		log.Printf("ws: connection %s too slow, disconnecting", connID)
		h.Remove(connID)
		return fmt.Errorf("send buffer full: %s", connID)
	}
}

func (h *Hub) JoinChannel(connID string, ch session.Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; !ok {
		return
	}
	h.joinLocked(connID, ch)
}

func (h *Hub) LeaveChannel(connID string, ch session.Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(connID, ch)
}

func (h *Hub) MembersOf(ch session.Channel) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]string, 0, len(h.byChannel[ch]))
	for connID := range h.byChannel[ch] {
		members = append(members, connID)
	}
	return members
}

func (h *Hub) Channels() []session.Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	channels := make([]session.Channel, 0, len(h.byChannel))
	for ch := range h.byChannel {
		channels = append(channels, ch)
	}
	return channels
}

// Disconnect forcibly closes connID. The read loop serving the connection
// observes the closed socket and runs lifecycle cleanup from there.
func (h *Hub) Disconnect(connID string) {
	h.Remove(connID)
}

func (h *Hub) joinLocked(connID string, ch session.Channel) {
	if h.byChannel[ch] == nil {
		h.byChannel[ch] = make(map[string]struct{})
	}
	h.byChannel[ch][connID] = struct{}{}
	if h.byConn[connID] == nil {
		h.byConn[connID] = make(map[session.Channel]struct{})
	}
	h.byConn[connID][ch] = struct{}{}
}

func (h *Hub) leaveLocked(connID string, ch session.Channel) {
	if members, ok := h.byChannel[ch]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.byChannel, ch)
		}
	}
	if channels, ok := h.byConn[connID]; ok {
		delete(channels, ch)
	}
}
