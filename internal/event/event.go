package event

import (
	"time"
)

// TimestampLayout is the canonical textual form every timestamp takes on the
// wire. Timestamps are normalized to UTC before formatting so the same
// instant always serializes to the same string.
const TimestampLayout = time.RFC3339

// FormatTimestamp renders t in the canonical wire form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Event is an immutable payload produced by the event source. The router
// never mutates an event; the only transformation applied before transmission
// is serializing the timestamp into its canonical string form.
type Event struct {
	Type      string
	Timestamp time.Time
	Fields    map[string]any
}

// Wire returns the JSON-ready payload for transmission: every field of the
// event plus the type discriminator and the canonical timestamp string.
// The event's own Fields map is left untouched.
func (e Event) Wire() map[string]any {
	payload := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		payload[k] = v
	}
	payload["type"] = e.Type
	payload["timestamp"] = FormatTimestamp(e.Timestamp)
	return payload
}

// Envelope pairs an event with its dispatch target. At most one of Channel
// and SubscriberIDs is normally set; when a caller mistakenly supplies both,
// the channel wins (the router's first branch).
type Envelope struct {
	Event         Event
	Channel       string
	SubscriberIDs []string
}
