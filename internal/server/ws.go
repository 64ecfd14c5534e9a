package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// TelemetryHandler broadcasts the controller's per-frame outputs over
// WebSocket.
type TelemetryHandler struct {
	controller Controller
	clients    map[*websocket.Conn]bool
	mu         sync.RWMutex
}

// NewTelemetryHandler creates a new TelemetryHandler over the controller.
func NewTelemetryHandler(controller Controller) *TelemetryHandler {
	h := &TelemetryHandler{
		controller: controller,
		clients:    make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *TelemetryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

// broadcast sends the latest snapshot to all connected clients.
func (h *TelemetryHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	lastIndex := -1
	for range ticker.C {
		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		h.mu.RUnlock()

		snap := h.controller.Snapshot()
		if snap.FrameIndex == lastIndex {
			continue
		}
		lastIndex = snap.FrameIndex

		msg, _ := json.Marshal(map[string]any{
			"steering":      snap.Command.Angle,
			"lane_detected": snap.Command.LaneDetected,
			"turn_state":    snap.TurnState,
			"wheels":        snap.Wheels,
			"frame_index":   snap.FrameIndex,
			"stalled":       snap.Stalled,
			"timestamp":     time.Now().UnixMilli(),
		})

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
