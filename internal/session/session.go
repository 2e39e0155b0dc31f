package session

// RoleAdmin grants membership of the admin channel.
const RoleAdmin = "admin"

// Session is the authenticated identity attached to exactly one live
// connection. A session exists in the Store iff its connection is both open
// and authenticated; re-authentication replaces the session, it never
// appends. SubscriptionID is empty until a subscribe call against the
// external event source succeeds.
type Session struct {
	UserID         string   `json:"userId,omitempty"`
	AgentID        string   `json:"agentId,omitempty"`
	OrganizationID string   `json:"organizationId,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	SubscriptionID string   `json:"-"`
}

func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the session, duplicating the roles slice so
// the copy can be mutated independently of the original.
func (s *Session) Clone() *Session {
	c := *s
	if len(s.Roles) > 0 {
		c.Roles = make([]string, len(s.Roles))
		copy(c.Roles, s.Roles)
	}
	return &c
}
