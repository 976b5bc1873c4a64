// Package realtime pushes progress events to parent dashboards over WebSockets.
package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/olahol/melody"
)

const familyKey = "family_id"

// Hub fans events out to the sockets of one family
type Hub struct {
	m *melody.Melody
}

// NewHub creates a hub with keep-alive settings suited to proxied hosting
func NewHub() *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 4 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		familyID, _ := s.Get(familyKey)
		log.Printf("Dashboard connected for family %v", familyID)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		familyID, _ := s.Get(familyKey)
		log.Printf("Dashboard disconnected for family %v", familyID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("WebSocket error: %v", err)
	})

	return &Hub{m: m}
}

// Serve upgrades the request and subscribes the socket to familyID's events
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, familyID string) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]any{familyKey: familyID})
}

// Publish sends event as JSON to every socket of the family
func (h *Hub) Publish(familyID string, event any) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(familyKey)
		return ok && id == familyID
	})
}

// Connections returns the number of open sockets
func (h *Hub) Connections() int {
	return h.m.Len()
}

// Close disconnects every socket
func (h *Hub) Close() error {
	return h.m.Close()
}
