package handlers

import (
	"net/http"
	"sync"
	"time"

	"project-management-api/internal/handlers/apierr"
	"project-management-api/internal/middleware"
	"project-management-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// gorilla connections allow one concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn}
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message) == nil
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

type WSHandler struct {
	logger   *zap.SugaredLogger
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(logger *zap.SugaredLogger, hub *realtime.Hub) *WSHandler {
	return &WSHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is already handled at Gin level
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the connection and registers the client with the hub until
// the peer goes away. The JWT middleware must run first.
// GET /api/ws
func (h *WSHandler) Serve(c *gin.Context) {
	employeeID := middleware.EmployeeID(c)
	if employeeID == 0 {
		apierr.WriteApiErrJSON(c, http.StatusUnauthorized, apierr.Unauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade error", "employeeID", employeeID, "err", err)
		return
	}

	client := newWSClient(conn)
	h.hub.Register(employeeID, client)
	h.logger.Debugw("websocket connected", "employeeID", employeeID, "connections", h.hub.Connected(employeeID))

	pingTicker := time.NewTicker(pingPeriod)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				if err := client.ping(); err != nil {
					// reader loop will exit on next error
					return
				}
			}
		}
	}()
	defer func() {
		close(done)
		pingTicker.Stop()
		h.hub.Unregister(employeeID, client)
		client.Close()
		h.logger.Debugw("websocket disconnected", "employeeID", employeeID)
	}()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
