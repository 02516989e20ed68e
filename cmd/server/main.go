package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parlor/backend/config"
	"github.com/parlor/backend/internal/auth"
	"github.com/parlor/backend/internal/cache"
	"github.com/parlor/backend/internal/chat"
	"github.com/parlor/backend/internal/handlers"
	"github.com/parlor/backend/internal/logging"
	"github.com/parlor/backend/internal/metrics"
	"github.com/parlor/backend/internal/middleware"
	"github.com/parlor/backend/internal/repository"
	"github.com/parlor/backend/internal/sanitize"
	"github.com/parlor/backend/internal/storage"
	"github.com/parlor/backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config.load.failed", "error", err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.Log.Level)
	if err := run(cfg, log); err != nil {
		log.Error("server.failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg, true, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(store.Users, log)
	convRepo := repository.NewConversationRepository(store.Conversations, log)
	msgRepo := repository.NewMessageRepository(store.Messages, log)
	profileRepo := repository.NewProfileRepository(store.Profiles, log)
	loaders := []struct {
		name string
		load func() error
	}{
		{"users", userRepo.Load},
		{"conversations", convRepo.Load},
		{"messages", msgRepo.Load},
		{"profiles", profileRepo.Load},
	}
	for _, l := range loaders {
		if err := l.load(); err != nil {
			return fmt.Errorf("failed to load %s: %w", l.name, err)
		}
	}
	log.Info("repositories.loaded",
		"users", userRepo.Count(),
		"conversations", convRepo.Count(),
		"messages", msgRepo.Count(),
	)

	// Connect to Redis
	var redis *cache.RedisClient
	if cfg.RedisEnabled() {
		redis, err = cache.NewRedisClient(ctx, cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis.unavailable", "addr", cfg.GetRedisAddr(), "error", err)
			redis = nil
		} else {
			defer redis.Close()
		}
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	sanitizer := sanitize.NewStrict()

	hub := websocket.NewHub(redis, log)
	go hub.Run(ctx)

	chatService := chat.NewService(convRepo, msgRepo, userRepo, sanitizer, hub, log)
	directMessages := chat.NewDirectMessages(convRepo, userRepo, log)

	var shared middleware.SharedLimiter
	if redis != nil {
		shared = redis
	}
	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitMessagesPerSec, shared, log)
	rateLimiter.Cleanup(ctx)

	m := metrics.New()
	m.Gauge("users", "Registered users.", userRepo.Count)
	m.Gauge("conversations", "Conversations of every type.", convRepo.Count)
	m.Gauge("messages", "Stored messages.", msgRepo.Count)
	m.Gauge("online_users", "Users with at least one websocket connection.", func() int {
		return len(hub.OnlineUsers())
	})

	wsHandler := websocket.NewHandler(hub, jwtService, userRepo, chatService, rateLimiter, cfg.CORS.AllowedOrigins)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		Log:            log,
		JWTService:     jwtService,
		CookieName:     cfg.JWT.CookieName,
		SecureCookie:   cfg.IsProduction(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Users:          userRepo,
		Profiles:       profileRepo,
		Chat:           chatService,
		DirectMessages: directMessages,
		Sanitizer:      sanitizer,
		RateLimiter:    rateLimiter,
		WebSocket:      wsHandler,
		Presence:       hub,
		Metrics:        m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.starting", "addr", srv.Addr, "env", cfg.Server.Env, "storage", cfg.Storage.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("server.stopping")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
