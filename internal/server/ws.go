package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/asana/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = 5 * time.Second

// verdictMessage is the JSON pushed to live clients for every check.
type verdictMessage struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Asana     string  `json:"asana"`
	Outcome   string  `json:"outcome"`
	Correct   bool    `json:"correct"`
	Distance  float64 `json:"distance"`
	Reason    string  `json:"reason,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// VerdictHub broadcasts completed checks to WebSocket clients.
type VerdictHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewVerdictHub creates a VerdictHub with no clients.
func NewVerdictHub() *VerdictHub {
	return &VerdictHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *VerdictHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast sends a check result to every connected client.
// Clients that cannot be written to are dropped.
func (h *VerdictHub) Broadcast(r *app.Result) {
	msg, err := json.Marshal(verdictMessage{
		Type:      "verdict",
		ID:        r.ID,
		Asana:     r.Asana,
		Outcome:   string(r.Verdict.Outcome),
		Correct:   r.Verdict.Correct(),
		Distance:  r.Verdict.Distance,
		Reason:    r.Verdict.Reason,
		Timestamp: r.CreatedAt.UnixMilli(),
	})
	if err != nil {
		log.Printf("Failed to encode verdict: %v", err)
		return
	}

	// Writes are serialized under the lock; gorilla connections allow one writer.
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("Dropping live client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *VerdictHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
