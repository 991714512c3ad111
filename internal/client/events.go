package client

import (
	"context"
	"log"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/deckops/steamback/internal/models"
)

// Events connects to the daemon's lifetime event stream. The returned
// channel closes when the connection drops or ctx is cancelled.
func (c *Client) Events(ctx context.Context) (<-chan models.LifetimeEvent, error) {
	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/api/events"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	ch := make(chan models.LifetimeEvent, 16)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(ch)
		defer func() { _ = conn.Close() }()
		for {
			var ev models.LifetimeEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					log.Printf("[Events] stream closed: %v", err)
				}
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
