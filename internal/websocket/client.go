package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parlor/backend/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 10240 // 10KB

	sendAction = "message.send"
)

// MessagePoster posts a message on behalf of a user. chat.Service implements it.
type MessagePoster interface {
	PostMessage(actor, title, content string) (*models.Message, error)
}

// Limiter decides whether a user may act now. middleware.RateLimiter
// implements it.
type Limiter interface {
	Allow(ctx context.Context, username, action string) bool
}

// Client represents a WebSocket client
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	username    string
	connectedAt time.Time

	poster  MessagePoster
	limiter Limiter

	// closed is set by the hub, under its lock, when it closes send.
	closed bool
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, username string, poster MessagePoster, limiter Limiter) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		username:    username,
		connectedAt: time.Now(),
		poster:      poster,
		limiter:     limiter,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket.read.failed", "username", c.username, "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection. Each
// event is written as its own frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming WebSocket messages
func (c *Client) handleMessage(data []byte) {
	var wsMsg models.WSMessage
	if err := json.Unmarshal(data, &wsMsg); err != nil {
		c.sendError("Invalid message format", "bad_request")
		return
	}

	switch wsMsg.Event {
	case models.EventMessageSend:
		c.handleMessageSend(wsMsg.Payload)
	default:
		c.sendError("Unknown event type", "bad_request")
	}
}

// handleMessageSend posts the message. Delivery to members, the sender
// included, happens through the hub broadcast.
func (c *Client) handleMessageSend(payload interface{}) {
	data, _ := json.Marshal(payload)
	var req models.WSMessageSendPayload
	if err := json.Unmarshal(data, &req); err != nil || req.Title == "" {
		c.sendError("Invalid message payload", "bad_request")
		return
	}

	if c.limiter != nil && !c.limiter.Allow(context.Background(), c.username, sendAction) {
		c.sendError("Rate limit exceeded", "rate_limited")
		return
	}

	if _, err := c.poster.PostMessage(c.username, req.Title, req.Content); err != nil {
		c.sendError(err.Error(), errorCode(err))
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrUnauthenticated), errors.Is(err, models.ErrUnknownUser):
		return "unauthenticated"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidArgument):
		return "bad_request"
	}
	return "internal"
}

// sendError sends an error message to the client
func (c *Client) sendError(message, code string) {
	errorMsg := models.WSMessage{
		Event: models.EventError,
		Payload: models.WSErrorPayload{
			Message: message,
			Code:    code,
		},
	}

	data, _ := json.Marshal(errorMsg)
	c.hub.reply(c, data)
}
