package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"inspection-service/models"

	"github.com/apex/log"
)

// Hub manages WebSocket connections and pushes newly stored inspections
// to connected history views
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to clients
	broadcast chan []byte

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mutex sync.RWMutex

	lastBroadcastSeq int
	connectedClients int
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			log.Infof("Client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			log.Infof("Client disconnected. Total clients: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
		}
	}
}

// NotifyInspection broadcasts a stored inspection to all connected
// clients so open history views refresh without polling
func (h *Hub) NotifyInspection(insp *models.Inspection) {
	h.mutex.Lock()
	if insp.Seq > h.lastBroadcastSeq {
		h.lastBroadcastSeq = insp.Seq
	}
	h.mutex.Unlock()

	message := models.InspectionEvent{
		Type:       "inspection",
		Inspection: insp,
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
		log.Infof("Broadcasted inspection #%04d to %d clients", insp.Seq, h.connectedClients)
	default:
		log.Warnf("Broadcast channel full, dropping inspection #%04d", insp.Seq)
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() (int, int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.lastBroadcastSeq
}
