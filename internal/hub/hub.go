// Package hub fans monitoring events out to connected WebSocket clients.
package hub

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event is a message pushed to monitoring clients. CompanyID scopes
// delivery so one carrier never sees another carrier's fleet.
type Event struct {
	CompanyID uint                   `json:"company_id"`
	Type      string                 `json:"type"` // "position" or "alert"
	Payload   map[string]interface{} `json:"payload"`
}

// FleetHub manages active monitoring connections and broadcasts trip
// events to them. Company clients receive only their own events; admin
// clients receive everything.
type FleetHub struct {
	companyClients map[uint]map[*websocket.Conn]bool
	adminClients   map[*websocket.Conn]bool
	broadcast      chan Event
	mu             sync.Mutex
}

// NewFleetHub creates a hub and starts its broadcast goroutine.
func NewFleetHub() *FleetHub {
	h := &FleetHub{
		companyClients: make(map[uint]map[*websocket.Conn]bool),
		adminClients:   make(map[*websocket.Conn]bool),
		broadcast:      make(chan Event, 100),
	}
	go h.run()
	return h
}

func (h *FleetHub) run() {
	for event := range h.broadcast {
		h.mu.Lock()
		targets := make([]*websocket.Conn, 0)
		if clients, ok := h.companyClients[event.CompanyID]; ok {
			for conn := range clients {
				targets = append(targets, conn)
			}
		}
		for conn := range h.adminClients {
			targets = append(targets, conn)
		}
		h.mu.Unlock()

		for _, conn := range targets {
			if err := conn.WriteJSON(event); err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					logrus.WithFields(logrus.Fields{
						"company_id": event.CompanyID,
						"conn_ptr":   fmt.Sprintf("%p", conn),
					}).Info("Client connection closed during broadcast, unregistering.")
					h.Unregister(conn)
				} else {
					logrus.WithError(err).WithField("company_id", event.CompanyID).
						Warn("Failed to send broadcast message to client.")
				}
			}
		}
	}
}

// RegisterCompany registers a monitoring connection scoped to one company.
func (h *FleetHub) RegisterCompany(companyID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.companyClients[companyID]; !ok {
		h.companyClients[companyID] = make(map[*websocket.Conn]bool)
	}
	h.companyClients[companyID][conn] = true
	logrus.WithFields(logrus.Fields{
		"company_id": companyID,
		"conn_ptr":   fmt.Sprintf("%p", conn),
	}).Info("Company client registered with FleetHub.")
}

// RegisterAdmin registers a connection that receives events for all companies.
func (h *FleetHub) RegisterAdmin(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.adminClients[conn] = true
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", conn)).Info("Admin client registered with FleetHub.")
}

// Unregister removes a connection wherever it is registered.
func (h *FleetHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.adminClients, conn)
	for companyID, clients := range h.companyClients {
		if _, ok := clients[conn]; ok {
			delete(clients, conn)
			if len(clients) == 0 {
				delete(h.companyClients, companyID)
			}
		}
	}
}

// PublishPosition pushes a trip position update to the company's clients.
func (h *FleetHub) PublishPosition(companyID uint, payload map[string]interface{}) {
	h.publish(Event{CompanyID: companyID, Type: "position", Payload: payload})
}

// PublishAlert pushes a monitoring alert to the company's clients.
func (h *FleetHub) PublishAlert(companyID uint, payload map[string]interface{}) {
	h.publish(Event{CompanyID: companyID, Type: "alert", Payload: payload})
}

func (h *FleetHub) publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		logrus.Warn("Fleet broadcast channel full, dropping message.")
	}
}
