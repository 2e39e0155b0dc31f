// Package demo feeds the event source with synthetic traffic so the gateway
// can be exercised without a real upstream producer.
package demo

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/relayforge/realtime/internal/event"
	"github.com/relayforge/realtime/internal/session"
	"github.com/relayforge/realtime/internal/source"
)

type feedEntry struct {
	eventType string
	channel   session.Channel
	fields    map[string]any
}

// Generator publishes a rotating mix of channel-targeted and global events.
type Generator struct {
	src      *source.Memory
	interval time.Duration
	entries  []feedEntry
}

func NewGenerator(src *source.Memory, interval time.Duration) *Generator {
	return &Generator{
		src:      src,
		interval: interval,
		entries: []feedEntry{
			{
				eventType: "campaign_progress",
				channel:   session.CampaignChannel("demo"),
				fields:    map[string]any{"campaignId": "demo", "contacted": 0},
			},
			{
				eventType: "agent_status",
				channel:   session.AgentChannel("agent-demo"),
				fields:    map[string]any{"agentId": "agent-demo", "status": "available"},
			},
			{
				eventType: "system_notice",
				fields:    map[string]any{"message": "demo feed heartbeat"},
			},
			{
				eventType: "audit_entry",
				channel:   session.ChannelAdmin,
				fields:    map[string]any{"action": "demo.tick"},
			},
		},
	}
}

// Start publishes one entry per interval until ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	contacted := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entry := g.entries[rand.Intn(len(g.entries))]

			fields := make(map[string]any, len(entry.fields))
			for k, v := range entry.fields {
				fields[k] = v
			}
			if entry.eventType == "campaign_progress" {
				contacted++
				fields["contacted"] = contacted
			}

			ev := event.Event{
				Type:      entry.eventType,
				Timestamp: time.Now(),
				Fields:    fields,
			}
			if err := g.src.Publish(ev, entry.channel, nil); err != nil {
				log.Printf("demo: publish %s: %v", entry.eventType, err)
			}
		}
	}
}
