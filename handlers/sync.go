package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sparrow/services"
)

// SyncHandler mirrors a conversation's Redis event channel to read-only
// WebSocket watchers, wherever the conversation itself lives.
type SyncHandler struct {
	rdb       *redis.Client
	publisher *services.RedisPublisher
	log       *zap.Logger
	upgrader  websocket.Upgrader
}

func NewSyncHandler(rdb *redis.Client, publisher *services.RedisPublisher, allowedOrigins []string, log *zap.Logger) *SyncHandler {
	return &SyncHandler{
		rdb:       rdb,
		publisher: publisher,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkWSOrigin(allowedOrigins),
		},
	}
}

// HandleWebSocket subscribes to the conversation's channel and forwards
// each published event to the client untouched.
func (h *SyncHandler) HandleWebSocket(c *gin.Context) {
	if h.rdb == nil || h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event sync unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("sync upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	channel := h.publisher.Channel(c.Param("id"))
	h.log.Info("sync watcher subscribed", zap.String("channel", channel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Ping/pong keepalive
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	// Redis -> WS, single writer
	go func() {
		defer conn.Close()
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					cancel()
					return
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// the client only reads; this loop just notices disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.log.Info("sync watcher disconnected", zap.String("channel", channel))
}
