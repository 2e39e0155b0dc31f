package session

// Channel names a fan-out partition. Canonical forms: "user:<id>",
// "agent:<id>", "organization:<id>", "campaign:<id>" and "admin". The
// implicit all-connections partition used for global broadcast has no
// channel name; it is selected by the router when no target is given.
type Channel string

const ChannelAdmin Channel = "admin"

func UserChannel(id string) Channel         { return Channel("user:" + id) }
func AgentChannel(id string) Channel        { return Channel("agent:" + id) }
func OrganizationChannel(id string) Channel { return Channel("organization:" + id) }
func CampaignChannel(id string) Channel     { return Channel("campaign:" + id) }

// DeriveChannels returns the identity-derived channel set for s: one channel
// per present identity field, plus admin when the session carries the admin
// role. Both the transport join path and the subscription bridge go through
// this routine; it is the single source of truth for derived membership, so
// the two call sites cannot drift apart.
func DeriveChannels(s *Session) []Channel {
	channels := make([]Channel, 0, 4)
	if s.UserID != "" {
		channels = append(channels, UserChannel(s.UserID))
	}
	if s.AgentID != "" {
		channels = append(channels, AgentChannel(s.AgentID))
	}
	if s.OrganizationID != "" {
		channels = append(channels, OrganizationChannel(s.OrganizationID))
	}
	if s.HasRole(RoleAdmin) {
		channels = append(channels, ChannelAdmin)
	}
	return channels
}
