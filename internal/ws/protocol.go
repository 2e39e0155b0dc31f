package ws

// Client → server message types.
const (
	MsgAuthenticate    = "authenticate"
	MsgSubscribeEvents = "subscribe_events"
	MsgJoinCampaign    = "join_campaign"
	MsgLeaveCampaign   = "leave_campaign"
	MsgPing            = "ping"
)

// Message is the server → client frame: a type discriminator plus a
// type-specific payload.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ClientMessage is the client → server frame. Fields beyond Type are
// populated per message type: Token for authenticate, CampaignID for
// join/leave_campaign, EventTypes and Filters for subscribe_events.
type ClientMessage struct {
	Type       string            `json:"type"`
	Token      string            `json:"token,omitempty"`
	CampaignID string            `json:"campaignId,omitempty"`
	EventTypes []string          `json:"eventTypes,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
}
