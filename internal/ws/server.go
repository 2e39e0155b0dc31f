package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/relayforge/realtime/internal/gateway"
	"github.com/relayforge/realtime/internal/router"
)

// Server terminates websocket connections and feeds inbound frames to the
// lifecycle controller.
type Server struct {
	hub            *Hub
	controller     *gateway.Controller
	stats          *gateway.Stats
	router         *router.Router
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	readLimit      int64
}

func NewServer(hub *Hub, controller *gateway.Controller, stats *gateway.Stats, rt *router.Router, allowedOrigins []string, readLimit int64) *Server {
	s := &Server{
		hub:            hub,
		controller:     controller,
		stats:          stats,
		router:         rt,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		readLimit:      readLimit,
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/stats", s.handleStats)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	if s.readLimit > 0 {
		sock.SetReadLimit(s.readLimit)
	}

	connID := s.hub.Add(sock)
	s.controller.Connect(connID)

	defer func() {
		s.hub.Remove(connID)
		s.controller.Disconnect(connID)
	}()

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(connID, data)
	}
}

// dispatch routes one inbound frame to the controller. Malformed frames and
// unknown message types are reported to the sending connection only.
func (s *Server) dispatch(connID string, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(connID, "malformed message")
		return
	}

	switch msg.Type {
	case MsgAuthenticate:
		s.controller.Authenticate(connID, msg.Token)
	case MsgSubscribeEvents:
		s.controller.Subscribe(connID, msg.EventTypes, msg.Filters)
	case MsgJoinCampaign:
		s.controller.JoinCampaign(connID, msg.CampaignID)
	case MsgLeaveCampaign:
		s.controller.LeaveCampaign(connID, msg.CampaignID)
	case MsgPing:
		s.controller.Ping(connID)
	default:
		s.sendError(connID, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *Server) sendError(connID, message string) {
	if err := s.hub.Send(connID, "error", map[string]any{"message": message}); err != nil {
		log.Printf("ws: report error to %s: %v", connID, err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	type statsResponse struct {
		Gateway gateway.Snapshot   `json:"gateway"`
		Router  router.Stats       `json:"router"`
		Host    *gateway.HostStats `json:"host,omitempty"`
	}

	resp := statsResponse{
		Gateway: s.stats.Snapshot(),
		Router:  s.router.Stats(),
	}
	if host, err := s.stats.Host(); err == nil {
		resp.Host = &host
	} else {
		log.Printf("host stats unavailable: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}
	if host == r.Host {
		return true
	}
	if host == "localhost" || strings.HasPrefix(host, "localhost:") {
		return true
	}
	if host == "127.0.0.1" || strings.HasPrefix(host, "127.0.0.1:") {
		return true
	}
	if host == "::1" || strings.HasPrefix(host, "[::1]:") {
		return true
	}

	return false
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
