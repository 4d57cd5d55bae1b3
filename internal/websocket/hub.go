package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/middleware"
	"promptcraft-backend/internal/models"
	"promptcraft-backend/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameBytes = 64 * 1024
)

// Hub serves the chat socket. Every connection is one page session with its
// own ChatSession and conversation registry.
type Hub struct {
	jwt      *middleware.JWTAuth
	model    services.ModelClient
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	connections map[*chatConn]struct{}
}

func NewHub(jwt *middleware.JWTAuth, model services.ModelClient, allowedOrigin string, log *logger.Logger) *Hub {
	h := &Hub{
		jwt:         jwt,
		model:       model,
		log:         log.With("component", "chat_ws"),
		connections: make(map[*chatConn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
		},
	}
	return h
}

type chatConn struct {
	ws       *websocket.Conn
	clientID uuid.UUID
	session  *services.ChatSession
	cancel   context.CancelFunc

	writeMu sync.Mutex
}

func (c *chatConn) write(frame models.ChatServerFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(frame)
}

func (c *chatConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on a socket, so the token rides in the query.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	clientID, err := h.jwt.ParseClientToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "client_id", clientID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &chatConn{
		ws:       ws,
		clientID: clientID,
		session:  services.NewChatSession(services.NewChatRegistry(h.model)),
		cancel:   cancel,
	}

	h.registerConnection(c)
	go h.keepAlive(ctx, c)
	go func() {
		defer h.unregisterConnection(c)
		h.readLoop(ctx, c)
	}()
}

func (h *Hub) registerConnection(c *chatConn) {
	h.mu.Lock()
	h.connections[c] = struct{}{}
	total := len(h.connections)
	h.mu.Unlock()

	h.log.Info("chat connected", "client_id", c.clientID, "connections", total)
}

// unregisterConnection cancels any in-flight reply and closes the socket.
func (h *Hub) unregisterConnection(c *chatConn) {
	h.mu.Lock()
	_, ok := h.connections[c]
	delete(h.connections, c)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.cancel()
	c.ws.Close()
	h.log.Info("chat disconnected", "client_id", c.clientID)
}

// CloseAll drops every open chat connection. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*chatConn, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		h.unregisterConnection(c)
	}
}

func (h *Hub) keepAlive(ctx context.Context, c *chatConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *chatConn) {
	c.ws.SetReadLimit(maxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := c.write(h.resetFrame(c.session)); err != nil {
		return
	}

	for {
		var frame models.ChatClientFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("chat read failed", "client_id", c.clientID, "error", err)
			}
			return
		}

		switch frame.Type {
		case "send":
			h.handleSend(ctx, c, frame.Message)
		case "mode":
			h.handleMode(c, frame.Mode)
		default:
			c.write(models.ChatServerFrame{Type: "ignored", Reason: "unknown frame type"})
		}
	}
}

func (h *Hub) resetFrame(s *services.ChatSession) models.ChatServerFrame {
	return models.ChatServerFrame{Type: "reset", Mode: s.Mode(), Messages: s.Messages()}
}

func (h *Hub) handleSend(ctx context.Context, c *chatConn, text string) {
	if c.session.Busy() {
		c.write(models.ChatServerFrame{Type: "ignored", Reason: "busy"})
		return
	}

	go func() {
		err := c.session.Send(ctx, text, func(f models.ChatServerFrame) {
			if werr := c.write(f); werr != nil {
				h.log.Debug("chat write failed", "client_id", c.clientID, "error", werr)
			}
		})
		h.writeSessionError(c, err)
	}()
}

func (h *Hub) handleMode(c *chatConn, mode models.ChatMode) {
	err := c.session.SwitchMode(mode)
	if err != nil {
		h.writeSessionError(c, err)
		return
	}
	c.write(h.resetFrame(c.session))
}

func (h *Hub) writeSessionError(c *chatConn, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, services.ErrChatBusy) {
		c.write(models.ChatServerFrame{Type: "ignored", Reason: "busy"})
		return
	}

	aiErr := services.ClassifyError(err)
	c.write(models.ChatServerFrame{Type: "error", Error: aiErr.Error(), Kind: string(aiErr.Kind)})
}
