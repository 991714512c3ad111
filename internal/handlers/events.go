package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // daemon binds to localhost only
	},
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// EventsHandler streams application lifetime notifications over WebSocket.
type EventsHandler struct {
	watcher *services.WatcherService
}

// NewEventsHandler creates a new EventsHandler instance.
func NewEventsHandler(watcher *services.WatcherService) *EventsHandler {
	return &EventsHandler{watcher: watcher}
}

// Stream upgrades the connection and forwards lifetime events until the
// client disconnects. The current running set is replayed on connect so a
// fresh client starts with the full picture.
// GET /api/events
func (h *EventsHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Events] upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch := h.watcher.Subscribe()
	defer h.watcher.Unsubscribe(ch)

	done := make(chan struct{})

	// read pump exists only to notice the peer going away
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, id := range h.watcher.RunningIDs() {
		if err := h.write(conn, models.LifetimeEvent{AppID: id, Running: true}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := h.write(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, ev models.LifetimeEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
