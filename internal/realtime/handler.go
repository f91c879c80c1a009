package realtime

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware in front of
	// this endpoint.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler returns a Gin handler that upgrades the connection and registers
// the client with the hub.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", "error", err.Error())
			return
		}

		client := NewClient(h, conn)
		h.register <- client
		// The socket outlives the HTTP request; its context would be
		// canceled as soon as this handler returns.
		client.Start(context.Background())
	}
}
