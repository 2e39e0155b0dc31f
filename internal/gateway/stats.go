package gateway

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/relayforge/realtime/internal/session"
)

// Snapshot is a point-in-time view of the connection and channel population.
type Snapshot struct {
	TotalConnections         int            `json:"totalConnections"`
	AuthenticatedConnections int            `json:"authenticatedConnections"`
	AgentConnections         int            `json:"agentConnections"`
	AdminConnections         int            `json:"adminConnections"`
	PerChannelCounts         map[string]int `json:"perChannelCounts"`
}

// HostStats reports utilization of the host the gateway runs on, served next
// to the connection snapshot for operators.
type HostStats struct {
	CPUPercent float64 `json:"cpuPercent"`
	MemPercent float64 `json:"memPercent"`
}

// Stats computes read-only observability snapshots from the live store and
// the transport's membership view. Nothing is cached; every call reflects
// the instant it was made.
type Stats struct {
	store     *session.Store
	transport Transport
}

func NewStats(store *session.Store, transport Transport) *Stats {
	return &Stats{store: store, transport: transport}
}

func (s *Stats) Snapshot() Snapshot {
	open := s.transport.OpenConnections()
	snap := Snapshot{
		TotalConnections: len(open),
		PerChannelCounts: make(map[string]int),
	}

	for _, sess := range s.store.All() {
		snap.AuthenticatedConnections++
		if sess.AgentID != "" {
			snap.AgentConnections++
		}
		if sess.HasRole(session.RoleAdmin) {
			snap.AdminConnections++
		}
	}

	// The transport keeps an implicit self-channel per connection, named by
	// the connection id. Those are private and excluded from the counts.
	self := make(map[string]struct{}, len(open))
	for _, connID := range open {
		self[connID] = struct{}{}
	}
	for _, ch := range s.transport.Channels() {
		if _, isSelf := self[string(ch)]; isSelf {
			continue
		}
		if n := len(s.transport.MembersOf(ch)); n > 0 {
			snap.PerChannelCounts[string(ch)] = n
		}
	}
	return snap
}

// Host samples CPU and memory utilization. Errors come straight from the
// platform probes.
func (s *Stats) Host() (HostStats, error) {
	var hs HostStats
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return hs, err
	}
	if len(percents) > 0 {
		hs.CPUPercent = percents[0]
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return hs, err
	}
	hs.MemPercent = vm.UsedPercent
	return hs, nil
}
