package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/parlor/backend/internal/cache"
	"github.com/parlor/backend/internal/models"
)

const publishTimeout = 2 * time.Second

var ErrHubBusy = errors.New("hub delivery queue is full")

// Hub maintains the set of active clients and routes envelopes to them.
// Clients are keyed by username; one user may hold several connections.
type Hub struct {
	// Registered clients
	clients map[string]map[*Client]struct{}

	// Envelopes waiting for local delivery
	deliver chan models.Envelope

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Redis client for pub/sub between server processes, nil when running alone
	redis *cache.RedisClient

	// Closed when Run returns
	done chan struct{}

	log *slog.Logger
	mu  sync.RWMutex
}

// NewHub creates a new Hub. redis may be nil.
func NewHub(redis *cache.RedisClient, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		deliver:    make(chan models.Envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redis,
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub and blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.redis != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			conns, ok := h.clients[client.username]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[client.username] = conns
			}
			conns[client] = struct{}{}
			h.mu.Unlock()

			if !ok {
				h.announcePresence(ctx, client.username, "online", client.connectedAt)
			}
			h.log.Info("websocket.client.registered", "username", client.username)

		case client := <-h.unregister:
			h.mu.Lock()
			last := h.removeLocked(client)
			h.mu.Unlock()

			if last {
				h.announcePresence(ctx, client.username, "offline", time.Now())
			}
			h.log.Info("websocket.client.unregistered", "username", client.username)

		case env := <-h.deliver:
			h.dispatch(env)
		}
	}
}

// Register adds client to the hub. It reports false when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast implements chat.Broadcaster. With Redis the envelope goes through
// the events channel so every server process delivers it; otherwise it is
// queued for local delivery.
func (h *Hub) Broadcast(env models.Envelope) error {
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		return h.redis.PublishEvent(ctx, env)
	}

	select {
	case h.deliver <- env:
		return nil
	default:
		return ErrHubBusy
	}
}

func (h *Hub) announcePresence(ctx context.Context, username, status string, at time.Time) {
	if h.redis != nil {
		var err error
		if status == "online" {
			err = h.redis.SetUserOnline(ctx, username)
		} else {
			err = h.redis.SetUserOffline(ctx, username)
		}
		if err != nil {
			h.log.Warn("websocket.presence.failed", "username", username, "error", err)
		}
	}

	err := h.Broadcast(models.Envelope{
		Public: true,
		Message: models.WSMessage{
			Event:   models.EventPresenceUpdate,
			Payload: models.UserPresence{Username: username, Status: status, LastSeen: at},
		},
	})
	if err != nil {
		h.log.Warn("websocket.presence.failed", "username", username, "error", err)
	}
}

// dispatch delivers env to connected clients. Public envelopes go to
// everyone, the rest only to the listed recipients. Clients that cannot keep
// up are dropped.
func (h *Hub) dispatch(env models.Envelope) {
	data, err := json.Marshal(env.Message)
	if err != nil {
		h.log.Error("websocket.encode.failed", "event", env.Message.Event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	targets := env.Recipients
	if env.Public {
		targets = lo.Keys(h.clients)
	}
	for _, username := range lo.Uniq(targets) {
		for client := range h.clients[username] {
			select {
			case client.send <- data:
			default:
				h.log.Warn("websocket.client.slow", "username", username)
				h.removeLocked(client)
			}
		}
	}
}

// closeLocked closes the client's send channel once. h.mu must be held for
// writing.
func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// removeLocked drops client and reports whether it was the user's last
// connection.
func (h *Hub) removeLocked(client *Client) bool {
	conns, ok := h.clients[client.username]
	if !ok {
		return false
	}
	if _, ok := conns[client]; !ok {
		return false
	}
	delete(conns, client)
	client.closeLocked()
	if len(conns) == 0 {
		delete(h.clients, client.username)
		return true
	}
	return false
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conns := range h.clients {
		for client := range conns {
			client.closeLocked()
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
}

// subscribeToRedis feeds envelopes published by any server process into local
// delivery.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.redis.SubscribeToEvents(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := cache.DecodeEvent(msg.Payload)
			if err != nil {
				h.log.Warn("websocket.redis.decode_failed", "error", err)
				continue
			}
			select {
			case h.deliver <- env:
			case <-ctx.Done():
				return
			}
		}
	}
}

// reply queues data for a single client. It is dropped when the client's
// buffer is full or the hub has already closed it.
func (h *Hub) reply(client *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client.closed {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// OnlineUsers returns the usernames with at least one open connection.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.Keys(h.clients)
}

// IsUserOnline reports whether username has at least one open connection.
func (h *Hub) IsUserOnline(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.clients[username]
	return ok
}
