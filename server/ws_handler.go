package server

import (
	"log"
	"net/http"
	"time"

	"github.com/epicshot/messaging/realtime"
	"github.com/epicshot/messaging/server/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket authenticates the handshake and hands the connection to
// the hub. A missing or invalid credential is terminal for this attempt;
// the client reconnects with a fresh token, the gateway never retries.
func (s *Server) handleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = getTokenFromHeader(c)
		}

		user, err := s.Identity.Verify(token)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed for %s: %v", user.Username, err)
			return
		}

		client := realtime.NewClient(s.Hub, conn, user.ID, user.Username, user.ProfileImage)
		s.Hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
