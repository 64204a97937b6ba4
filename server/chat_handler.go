package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	errs "github.com/unimarket/unimarket-chat/errors"
	"github.com/unimarket/unimarket-chat/models"
	"github.com/unimarket/unimarket-chat/server/response"
	"github.com/unimarket/unimarket-chat/services"
	"github.com/unimarket/unimarket-chat/services/jwt"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient is one live websocket connection for one authenticated user.
type wsClient struct {
	connID string
	userID uint
	conn   *websocket.Conn
	send   chan []byte
}

// ChatHub tracks which users currently hold a live connection and routes saved
// messages to them. One connection per user; a newer handshake replaces the
// older one.
type ChatHub struct {
	mu      sync.RWMutex
	clients map[uint]*wsClient
	service services.MessageService
}

func NewChatHub(service services.MessageService) *ChatHub {
	return &ChatHub{
		clients: make(map[uint]*wsClient),
		service: service,
	}
}

func (h *ChatHub) register(client *wsClient) {
	h.mu.Lock()
	prev := h.clients[client.userID]
	h.clients[client.userID] = client
	h.mu.Unlock()
	if prev != nil {
		prev.conn.Close()
	}
}

func (h *ChatHub) unregister(client *wsClient) {
	h.mu.Lock()
	if h.clients[client.userID] == client {
		delete(h.clients, client.userID)
	}
	h.mu.Unlock()
}

// push hands a frame to the user's connection if they are online. Delivery is
// best effort: a full send buffer drops the frame rather than blocking the
// hub, the durable log remains the source of truth.
func (h *ChatHub) push(userID uint, data []byte) bool {
	h.mu.RLock()
	client := h.clients[userID]
	h.mu.RUnlock()
	if client == nil {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// PushMessage fans a saved message out to both participants' live connections.
// Used by the REST side channel so an open inbox sees the message without a
// reload; the sender copy is harmless for websocket sends since the store on
// the client side dedupes by id.
func (h *ChatHub) PushMessage(msg *models.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("PushMessage marshal error: %v", err)
		return
	}
	h.push(msg.Receiver, data)
	h.push(msg.Sender, data)
}

// CloseAll drops every live connection, used on server shutdown.
func (h *ChatHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, client := range h.clients {
		client.conn.Close()
		delete(h.clients, userID)
	}
}

// handleChatWS authenticates the session from the token query parameter
// before upgrading, so no traffic is accepted on an unauthenticated socket.
func (s *Server) handleChatWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" || s.AuthRepository.IsTokenInBlacklist(token) {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		claims, err := jwt.ValidateAndGetClaims(token, s.Config.JWTSecret)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		userID, err := jwt.UserIDFromClaims(claims)
		if err != nil {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		if _, err := s.AuthRepository.FindUserByID(userID); err != nil {
			response.JSON(c, "user not found", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade error: %v", err)
			return
		}

		client := &wsClient{
			connID: uuid.NewString(),
			userID: userID,
			conn:   conn,
			send:   make(chan []byte, 16),
		}
		s.Hub.register(client)
		go client.writePump()
		client.readPump(s.Hub)
	}
}

// readPump consumes {receiver, message} frames from the client: each frame is
// persisted, echoed back to the sender as confirmation and pushed to the
// receiver if they are connected. Runs until the connection drops.
func (c *wsClient) readPump(hub *ChatHub) {
	// send is never closed: the hub may race a push against teardown, and a
	// write to a closed channel would panic. writePump exits on write error
	// once the connection is closed.
	defer func() {
		hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var request models.SendMessageRequest
		if err := json.Unmarshal(data, &request); err != nil {
			log.Printf("conn %s: discarding malformed frame: %v", c.connID, err)
			c.sendError("invalid message frame")
			continue
		}

		msg, apiErr := hub.service.SaveMessage(c.userID, &request)
		if apiErr != nil {
			c.sendError(apiErr.Message)
			continue
		}

		frame, err := json.Marshal(msg)
		if err != nil {
			log.Printf("conn %s: marshal error: %v", c.connID, err)
			continue
		}
		// Confirmation echo to the sender, then delivery to the receiver.
		select {
		case c.send <- frame:
		default:
		}
		hub.push(msg.Receiver, frame)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) sendError(message string) {
	data, _ := json.Marshal(gin.H{"error": message})
	select {
	case c.send <- data:
	default:
	}
}
