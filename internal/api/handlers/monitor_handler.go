package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/northcall/voicebridge/internal/utils"
)

// MonitorHandler streams a call's turn events to a supervisor over
// WebSocket. Workers publish turn results to the call's Redis channel; this
// handler forwards them verbatim.
type MonitorHandler struct {
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewMonitorHandler(rdb *redis.Client) *MonitorHandler {
	return &MonitorHandler{
		redis: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *MonitorHandler) CallMonitor(c *gin.Context) {
	if h.redis == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "MonitorHandler.CallMonitor", "live monitoring is not configured", nil))
		return
	}

	callSID := c.Param("call_sid")
	if callSID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MonitorHandler.CallMonitor", "missing call_sid", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, "call:"+callSID+":events")
	defer pubsub.Close()

	// reader: only to detect client close and answer pings
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch := pubsub.Channel()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := wc.writeText([]byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			wc.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			wc.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
