package ws

import (
	"net/http"
	"time"

	"github.com/ArowuTest/rifa-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and subscribes it to the hub. Query params:
// raffleId narrows the feed to one raffle, token identifies the user so
// personal events reach them.
func ServeWS(tokens *jwt.TokenService, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raffleID, userID primitive.ObjectID
		if raw := c.Query("raffleId"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffleId"})
				return
			}
			raffleID = id
		}
		if token := c.Query("token"); token != "" {
			claims, err := tokens.Parse(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			id, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			userID = id
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(userID, raffleID)
		hub.Register(client)
		defer client.Close()

		go writePump(client, conn)
		readPump(conn)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
