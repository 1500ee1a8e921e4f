package system

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// WebSocketController fans admin change events out to every connected
// client so open editors can refresh when policies or users change.
type WebSocketController struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewWebSocketController() *WebSocketController {
	return &WebSocketController{
		conns: make(map[*websocket.Conn]bool),
	}
}

func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		c.Close()
	}()

	// Drain until the client goes away. Inbound payloads are ignored.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast sends event as JSON to every connected client. Write
// failures drop the connection.
func (h *WebSocketController) Broadcast(event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Println("broadcast marshal:", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.conns, c)
			c.Close()
		}
	}
}
