package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RedrawEvent is pushed to every connected client when the graph changes.
type RedrawEvent struct {
	Restart bool `json:"restart"`
}

// Hub fans redraw notifications out to websocket clients. It satisfies
// engine.Renderer.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan RedrawEvent
}

// NewHub returns a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{log: logger, clients: make(map[*websocket.Conn]chan RedrawEvent)}
}

// RequestRedraw queues an event for every client. A client whose queue is
// full misses the event; the next one carries the same information.
func (h *Hub) RequestRedraw(restart bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- RedrawEvent{Restart: restart}:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(ws *websocket.Conn) chan RedrawEvent {
	ch := make(chan RedrawEvent, 16)
	h.mu.Lock()
	h.clients[ws] = ch
	h.mu.Unlock()
	return ch
}

func (h *Hub) unregister(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
}

// HandleWebSocket streams redraw events to one client until it disconnects.
func (h *Hub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		events := h.register(ws)
		defer h.unregister(ws)
		h.log.Info("websocket client connected", "remote", c.ClientIP())

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := ws.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				h.log.Info("websocket client disconnected", "remote", c.ClientIP())
				return
			case ev := <-events:
				_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := ws.WriteJSON(ev); err != nil {
					h.log.Warn("failed to write websocket event", "error", err)
					return
				}
			}
		}
	}
}
