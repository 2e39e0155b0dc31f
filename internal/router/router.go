// Package router implements broadcast dispatch: it drains the event source's
// notification stream and fans each event out to the connections selected by
// the envelope's target.
package router

import (
	"context"
	"log"
	"sync"

	"github.com/relayforge/realtime/internal/event"
	"github.com/relayforge/realtime/internal/gateway"
	"github.com/relayforge/realtime/internal/session"
)

// Stats contains runtime dispatch counters.
type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Delivered  int64 `json:"delivered"`
	Failures   int64 `json:"failures"`
}

// Router fans outbound events out to live connections. Target selection runs
// against a snapshot of the current membership; a connection that disconnects
// between selection and send degrades to a per-connection delivery failure,
// never an abort of the remaining fan-out.
type Router struct {
	store     *session.Store
	transport gateway.Transport
	input     <-chan event.Envelope

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	dispatched int64
	delivered  int64
	failures   int64
}

func New(store *session.Store, transport gateway.Transport, input <-chan event.Envelope) *Router {
	return &Router{
		store:     store,
		transport: transport,
		input:     input,
	}
}

// Start begins draining the notification stream.
func (r *Router) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.drainLoop()
	log.Printf("broadcast router started")
}

// Stop shuts the router down, waiting for the drain goroutine up to ctx's
// deadline. An in-flight fan-out runs to completion over the target snapshot
// taken at dispatch time.
func (r *Router) Stop(ctx context.Context) {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Printf("broadcast router stopped")
	case <-ctx.Done():
		log.Printf("broadcast router stop timed out")
	}
}

func (r *Router) drainLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case env, ok := <-r.input:
			if !ok {
				log.Printf("router: notification stream closed")
				return
			}
			r.Dispatch(env)
		}
	}
}

// Dispatch delivers one envelope. Mode selection, in priority order:
//
//  1. channel target present: fan out to the channel's current members;
//  2. subscriber list non-empty: deliver to the current holder of each
//     subscription id, silently skipping ids nobody holds;
//  3. neither: deliver to every live connection.
//
// A channel target wins when a caller mistakenly supplies both, so the first
// branch decides who receives the event.
func (r *Router) Dispatch(env event.Envelope) {
	var targets []string
	switch {
	case env.Channel != "":
		targets = r.transport.MembersOf(session.Channel(env.Channel))
	case len(env.SubscriberIDs) > 0:
		for _, subID := range env.SubscriberIDs {
			// At most one session holds a given id by construction, but every
			// match found is delivered to, keeping a hypothetical duplicate
			// well-defined.
			targets = append(targets, r.store.ConnectionsBySubscription(subID)...)
		}
	default:
		targets = r.transport.OpenConnections()
	}

	payload := env.Event.Wire()

	var delivered, failures int64
	for _, connID := range targets {
		if err := r.transport.Send(connID, "event", payload); err != nil {
			// Expected under races: the connection may have closed between
			// selection and send. Isolated, logged, never surfaced upstream.
			log.Printf("router: deliver %q to %s: %v", env.Event.Type, connID, err)
			failures++
			continue
		}
		delivered++
	}

	r.mu.Lock()
	r.dispatched++
	r.delivered += delivered
	r.failures += failures
	r.mu.Unlock()
}

// Stats returns the current dispatch counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Dispatched: r.dispatched,
		Delivered:  r.delivered,
		Failures:   r.failures,
	}
}
