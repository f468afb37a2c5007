// Package ws streams live session events to connected clients. Each
// connection subscribes to the session's redis channel and forwards every
// event as-is; the initial state is sent on connect.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/smarena/backend/internal/arena"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the WebSocketOriginCheck middleware.
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// HandleSessionStream upgrades the connection and relays session events.
func HandleSessionStream(manager *arena.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		session, err := manager.GetSession(sessionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] upgrade failed for session %s: %v", sessionID, err)
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Initial state so the client does not wait for the next event.
		initial, err := json.Marshal(map[string]interface{}{
			"type":    "state",
			"session": session,
		})
		if err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
				conn.Close()
				return
			}
		}

		var events <-chan *redis.Message
		var pubsub *redis.PubSub
		if rdb != nil {
			pubsub = rdb.Subscribe(ctx, arena.SessionChannel(sessionID))
			defer pubsub.Close()
			events = pubsub.Channel()
		}

		// Reader only consumes control frames and detects disconnects.
		go func() {
			defer cancel()
			conn.SetReadLimit(512)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				conn.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		defer conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					log.Printf("[WS] write failed for session %s: %v", sessionID, err)
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
}

// HandleNotifyStream relays the global notification channel, filtered to one
// user, over a websocket.
func HandleNotifyStream(rdb *redis.Client, userID func(*gin.Context) (int64, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user id required"})
			return
		}
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] upgrade failed for notify stream: %v", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		pubsub := rdb.Subscribe(ctx, "notify_events")
		defer pubsub.Close()
		events := pubsub.Channel()

		go func() {
			defer cancel()
			conn.SetReadLimit(512)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				conn.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				var note struct {
					UserID int64 `json:"user_id"`
				}
				if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil || note.UserID != uid {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
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
}
