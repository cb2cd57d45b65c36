package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sparrow/services"
)

const (
	wsReadTimeout  = 45 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

type ChatHandler struct {
	registry *services.Registry
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewChatHandler(registry *services.Registry, allowedOrigins []string, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		registry: registry,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkWSOrigin(allowedOrigins),
		},
	}
}

type chatCommand struct {
	Type      string `json:"type"` // "message" | "reset" | "select"
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}

type chatError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// HandleWebSocket streams the conversation's events to the client and feeds
// client commands back into it. All writes go through one goroutine.
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	id := c.Param("id")
	conv, err := h.registry.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("conversation_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, stop, err := conv.Subscribe(ctx)
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "conversation closed"))
		return
	}
	defer stop()

	snapshot, err := conv.Snapshot(ctx)
	if err != nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(services.Event{Type: services.EventState, ConversationID: id, State: snapshot}); err != nil {
		return
	}

	out := make(chan any, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// unblocks the read loop below when the writer stops first
		defer conn.Close()
		h.writeLoop(ctx, cancel, conn, events, out)
	}()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	h.log.Info("chat client connected", zap.String("conversation_id", id))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", zap.String("conversation_id", id), zap.Error(err))
			}
			break
		}

		var cmd chatCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			h.send(ctx, out, chatError{Type: "error", Error: "Invalid message format"})
			continue
		}

		// any command counts as activity
		if _, err := h.registry.Get(id); err != nil {
			h.send(ctx, out, chatError{Type: "error", Error: "Conversation not found"})
			break
		}

		if msg := h.dispatch(ctx, conv, cmd); msg != "" {
			h.send(ctx, out, chatError{Type: "error", Error: msg})
		}
	}

	cancel()
	<-writerDone
	h.log.Info("chat client disconnected", zap.String("conversation_id", id))
}

// dispatch applies one client command and returns an error text for the
// client, or "" on success. State changes reach the client as events.
func (h *ChatHandler) dispatch(ctx context.Context, conv *services.Conversation, cmd chatCommand) string {
	var err error
	switch cmd.Type {
	case "message":
		_, err = conv.Submit(ctx, cmd.Content)
	case "reset":
		_, err = conv.Reset(ctx)
	case "select":
		_, err = conv.SelectSession(ctx, cmd.SessionID)
	default:
		return "Unknown message type"
	}
	if err == nil {
		return ""
	}
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("chat command failed", zap.String("conversation_id", conv.ID()), zap.String("command", cmd.Type), zap.Error(err))
	}
	return msg
}

func (h *ChatHandler) send(ctx context.Context, out chan<- any, v any) {
	select {
	case out <- v:
	case <-ctx.Done():
	}
}

func (h *ChatHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, events <-chan services.Event, out <-chan any) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	write := func(v any) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(v); err != nil {
			cancel()
			return false
		}
		return true
	}

	for {
		select {
		case v := <-out:
			if !write(v) {
				return
			}
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "conversation closed"),
					time.Now().Add(wsWriteTimeout))
				cancel()
				return
			}
			if !write(ev) {
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
}
