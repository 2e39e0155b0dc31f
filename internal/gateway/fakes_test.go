package gateway

import (
	"errors"
	"sync"

	"github.com/relayforge/realtime/internal/session"
	"github.com/relayforge/realtime/internal/source"
)

type sentMessage struct {
	connID  string
	event   string
	payload any
}

// fakeTransport is an in-memory Transport recording every call.
type fakeTransport struct {
	mu           sync.Mutex
	open         map[string]struct{}
	channels     map[session.Channel]map[string]struct{}
	sent         []sentMessage
	failSends    map[string]bool
	disconnected []string
}

func newFakeTransport(connIDs ...string) *fakeTransport {
	f := &fakeTransport{
		open:      make(map[string]struct{}),
		channels:  make(map[session.Channel]map[string]struct{}),
		failSends: make(map[string]bool),
	}
	for _, id := range connIDs {
		f.open[id] = struct{}{}
	}
	return f
}

func (f *fakeTransport) OpenConnections() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.open))
	for id := range f.open {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeTransport) Send(connID, eventName string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSends[connID] {
		return errors.New("connection closed")
	}
	f.sent = append(f.sent, sentMessage{connID: connID, event: eventName, payload: payload})
	return nil
}

func (f *fakeTransport) JoinChannel(connID string, ch session.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channels[ch] == nil {
		f.channels[ch] = make(map[string]struct{})
	}
	f.channels[ch][connID] = struct{}{}
}

func (f *fakeTransport) LeaveChannel(connID string, ch session.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if members, ok := f.channels[ch]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(f.channels, ch)
		}
	}
}

func (f *fakeTransport) MembersOf(ch session.Channel) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]string, 0, len(f.channels[ch]))
	for id := range f.channels[ch] {
		members = append(members, id)
	}
	return members
}

func (f *fakeTransport) Channels() []session.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	channels := make([]session.Channel, 0, len(f.channels))
	for ch := range f.channels {
		channels = append(channels, ch)
	}
	return channels
}

func (f *fakeTransport) Disconnect(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, connID)
	f.disconnected = append(f.disconnected, connID)
}

func (f *fakeTransport) sentTo(connID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.connID == connID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) lastSentTo(connID string) (sentMessage, bool) {
	msgs := f.sentTo(connID)
	if len(msgs) == 0 {
		return sentMessage{}, false
	}
	return msgs[len(msgs)-1], true
}

func (f *fakeTransport) isMember(connID string, ch session.Channel) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[ch][connID]
	return ok
}

var errTestSubscribe = errors.New("event source unavailable")

// recordingSource wraps the in-memory event source to count unsubscribe
// calls and force subscribe failures.
type recordingSource struct {
	*source.Memory
	mu           sync.Mutex
	unsubscribed []string
	subscribeErr error
}

func newRecordingSource() *recordingSource {
	return &recordingSource{Memory: source.NewMemory(16)}
}

func (r *recordingSource) Subscribe(interest source.Interest) (string, error) {
	r.mu.Lock()
	err := r.subscribeErr
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return r.Memory.Subscribe(interest)
}

func (r *recordingSource) Unsubscribe(id string) error {
	r.mu.Lock()
	r.unsubscribed = append(r.unsubscribed, id)
	r.mu.Unlock()
	return r.Memory.Unsubscribe(id)
}

func (r *recordingSource) unsubscribeCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.unsubscribed {
		if u == id {
			n++
		}
	}
	return n
}
