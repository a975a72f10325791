// Package live pushes shift production totals to connected dashboards
// over WebSocket. The payload is always the full recomputed aggregate
// for a shift, never a delta, so a dropped frame costs nothing.
package live

import (
	"log"
	"net/http"
	"sync"
	"time"

	"recycle-backend/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Update is one broadcast frame.
type Update struct {
	ShiftID int                    `json:"shift_id"`
	Totals  []models.StationTotals `json:"totals"`
	At      time.Time              `json:"at"`
}

type Hub struct {
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Update
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Update, 16),
	}
}

// Run drains the broadcast channel onto every connected client. A
// failed write evicts the client.
func (h *Hub) Run() {
	for update := range h.broadcast {
		h.clientsMux.Lock()
		for client := range h.clients {
			if err := client.WriteJSON(update); err != nil {
				client.Close()
				delete(h.clients, client)
			}
		}
		h.clientsMux.Unlock()
	}
}

// Publish satisfies services.ChangeNotifier. A full broadcast channel
// drops the frame; the next ledger mutation re-sends the whole state.
func (h *Hub) Publish(shiftID int, totals []models.StationTotals) {
	select {
	case h.broadcast <- Update{ShiftID: shiftID, Totals: totals, At: time.Now()}:
	default:
	}
}

// HandleWebSocket upgrades a dashboard connection and keeps it
// registered until it disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Live] WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			h.clientsMux.Unlock()
			break
		}
	}
}
