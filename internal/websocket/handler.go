package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/parlor/backend/internal/auth"
	"github.com/parlor/backend/internal/middleware"
	"github.com/parlor/backend/internal/models"
)

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	jwtService *auth.JWTService
	users      models.UserLookup
	poster     MessagePoster
	limiter    Limiter
	upgrader   websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. An empty allowedOrigins list
// accepts any origin.
func NewHandler(
	hub *Hub,
	jwtService *auth.JWTService,
	users models.UserLookup,
	poster MessagePoster,
	limiter Limiter,
	allowedOrigins []string,
) *Handler {
	return &Handler{
		hub:        hub,
		jwtService: jwtService,
		users:      users,
		poster:     poster,
		limiter:    limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// HandleWebSocket upgrades the request. The user comes from the session
// middleware or, for clients that cannot send cookies, a token query
// parameter.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	username := middleware.CurrentUser(c)
	if username == "" {
		username = h.usernameFromToken(c.Query("token"))
	}
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("websocket.upgrade.failed", "username", username, "error", err)
		return
	}

	client := NewClient(h.hub, conn, username, h.poster, h.limiter)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) usernameFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		return ""
	}
	if id, ok := h.users.GetUserID(claims.Username); !ok || id != claims.UserID {
		return ""
	}
	return claims.Username
}

// GetOnlineUsers returns online usernames.
func (h *Handler) GetOnlineUsers(c *gin.Context) {
	onlineUsers := h.hub.OnlineUsers()
	c.JSON(http.StatusOK, gin.H{
		"online_users": onlineUsers,
		"count":        len(onlineUsers),
	})
}

func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	if len(allowedOrigins) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients
			return true
		}
		for _, pattern := range allowedOrigins {
			if matchOrigin(pattern, origin) {
				return true
			}
		}
		return false
	}
}

// matchOrigin supports exact matches or wildcard patterns like *.example.com
func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		originHost := origin
		if u, err := url.Parse(origin); err == nil {
			originHost = u.Hostname()
		}
		patHost := strings.TrimPrefix(pattern, "*")
		return strings.HasSuffix(originHost, patHost)
	}
	return false
}
