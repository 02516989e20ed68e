package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parlor/backend/internal/auth"
	"github.com/parlor/backend/internal/chat"
	"github.com/parlor/backend/internal/metrics"
	"github.com/parlor/backend/internal/middleware"
	"github.com/parlor/backend/internal/repository"
	"github.com/parlor/backend/internal/sanitize"
	"github.com/parlor/backend/internal/websocket"
)

// RouterConfig carries everything the HTTP layer needs.
type RouterConfig struct {
	Log            *slog.Logger
	JWTService     *auth.JWTService
	CookieName     string
	SecureCookie   bool
	AllowedOrigins []string

	Users          *repository.UserRepository
	Profiles       *repository.ProfileRepository
	Chat           *chat.Service
	DirectMessages *chat.DirectMessages
	Sanitizer      sanitize.Sanitizer
	RateLimiter    *middleware.RateLimiter

	// WebSocket, Presence and Metrics are optional.
	WebSocket *websocket.Handler
	Presence  Presence
	Metrics   *metrics.Metrics
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	authHandler := NewAuthHandler(cfg.Users, cfg.JWTService, cfg.CookieName, cfg.SecureCookie, cfg.Log)
	convHandler := NewConversationHandler(cfg.Chat, cfg.Log)
	chatHandler := NewChatHandler(cfg.Chat, cfg.Log)
	profileHandler := NewProfileHandler(cfg.Profiles, cfg.Users, cfg.DirectMessages, cfg.Sanitizer, cfg.Presence, cfg.Log)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.SessionMiddleware(cfg.JWTService, cfg.CookieName, cfg.Users))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.GET("/me", middleware.RequireAuth(), authHandler.GetMe)
	}

	router.GET("/conversations", convHandler.GetConversations)
	router.POST("/conversations",
		middleware.RequireAuth(),
		middleware.RateLimitMiddleware(cfg.RateLimiter, "conversation.create"),
		convHandler.CreateConversation,
	)

	chatRoutes := router.Group("/chat/:title")
	{
		chatRoutes.GET("", chatHandler.GetChat)
		chatRoutes.POST("", middleware.RateLimitMiddleware(cfg.RateLimiter, "message.send"), chatHandler.PostMessage)
		chatRoutes.POST("/members", chatHandler.AddMember)
	}

	profileRoutes := router.Group("/profile/:name")
	{
		profileRoutes.GET("", profileHandler.GetProfile)
		profileRoutes.POST("", profileHandler.UpdateProfile)
		profileRoutes.POST("/message", profileHandler.MessageUser)
	}

	if cfg.WebSocket != nil {
		router.GET("/ws", cfg.WebSocket.HandleWebSocket)
		router.GET("/api/online-users", middleware.RequireAuth(), cfg.WebSocket.GetOnlineUsers)
	}

	return router
}
