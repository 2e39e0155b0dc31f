package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relayforge/realtime/internal/session"
)

// dialTestWS creates a test HTTP server that upgrades to WebSocket and
// returns the server-side and client-side connections. The caller must close
// the server.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	select {
	case serverConn := <-connCh:
		return srv, serverConn, clientConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil, nil
	}
}

func TestAddAndRemove(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	h := NewHub(16)
	connID := h.Add(serverConn)

	open := h.OpenConnections()
	if len(open) != 1 || open[0] != connID {
		t.Errorf("OpenConnections() = %v, want [%s]", open, connID)
	}

	// Every connection is joined to its implicit self-channel.
	if members := h.MembersOf(session.Channel(connID)); len(members) != 1 {
		t.Errorf("self-channel members = %v", members)
	}

	h.Remove(connID)
	if got := h.OpenConnections(); len(got) != 0 {
		t.Errorf("OpenConnections() after Remove = %v", got)
	}
	if channels := h.Channels(); len(channels) != 0 {
		t.Errorf("Channels() after Remove = %v", channels)
	}

	// Removing again is a no-op.
	h.Remove(connID)
}

func TestJoinLeaveMembership(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	h := NewHub(16)
	connID := h.Add(serverConn)

	h.JoinChannel(connID, "campaign:spring")
	if members := h.MembersOf("campaign:spring"); len(members) != 1 || members[0] != connID {
		t.Errorf("MembersOf = %v, want [%s]", members, connID)
	}

	found := false
	for _, ch := range h.Channels() {
		if ch == "campaign:spring" {
			found = true
		}
	}
	if !found {
		t.Error("Channels() missing campaign:spring")
	}

	h.LeaveChannel(connID, "campaign:spring")
	if members := h.MembersOf("campaign:spring"); len(members) != 0 {
		t.Errorf("MembersOf after leave = %v", members)
	}

	// Leaving a channel never joined is a no-op.
	h.LeaveChannel(connID, "campaign:never")
}

func TestJoinChannelUnknownConnection(t *testing.T) {
	h := NewHub(16)
	h.JoinChannel("ghost", "campaign:spring")

	if members := h.MembersOf("campaign:spring"); len(members) != 0 {
		t.Errorf("unknown connection joined a channel: %v", members)
	}
}

func TestSendUnknownConnection(t *testing.T) {
	h := NewHub(16)
	err := h.Send("ghost", "event", map[string]any{"k": "v"})
	if !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("Send() error = %v, want ErrUnknownConnection", err)
	}
}

func TestSendDeliversFrame(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	h := NewHub(16)
	connID := h.Add(serverConn)
	defer h.Remove(connID)

	if err := h.Send(connID, "pong", map[string]any{"timestamp": "now"}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := clientConn.ReadJSON(&msg); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if msg.Type != "pong" {
		t.Errorf("frame type = %q, want pong", msg.Type)
	}
}

func TestSlowConsumerDisconnected(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	// Register the connection by hand with a full, undrained queue: no
	// writePump runs, so the next Send hits the buffer limit.
	h := NewHub(1)
	c := &conn{id: "c1", sock: serverConn, send: make(chan []byte, 1), done: make(chan struct{})}
	c.send <- []byte(`{}`)
	h.mu.Lock()
	h.conns[c.id] = c
	h.joinLocked(c.id, session.Channel(c.id))
	h.mu.Unlock()

	if err := h.Send("c1", "event", map[string]any{}); err == nil {
		t.Fatal("Send() to a saturated connection succeeded")
	}
	if got := h.OpenConnections(); len(got) != 0 {
		t.Errorf("slow connection still open: %v", got)
	}
}
