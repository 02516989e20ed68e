package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parlor/backend/internal/auth"
	"github.com/parlor/backend/internal/middleware"
	"github.com/parlor/backend/internal/models"
	"github.com/parlor/backend/internal/repository"
)

type AuthHandler struct {
	userRepo     *repository.UserRepository
	jwtService   *auth.JWTService
	cookieName   string
	secureCookie bool
	log          *slog.Logger
}

func NewAuthHandler(
	userRepo *repository.UserRepository,
	jwtService *auth.JWTService,
	cookieName string,
	secureCookie bool,
	log *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		jwtService:   jwtService,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		log:          log,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user := &models.User{
		ID:        uuid.New(),
		Name:      req.Username,
		CreatedAt: time.Now(),
	}
	if err := user.Validate(); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	user.PasswordHash = hashedPassword

	if err := h.userRepo.Add(user); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("user.registered", "username", user.Name)
	h.startSession(c, http.StatusCreated, user)
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, ok := h.userRepo.GetUser(req.Username)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.startSession(c, http.StatusOK, user)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

// GetMe returns the current user
func (h *AuthHandler) GetMe(c *gin.Context) {
	uid, _ := middleware.CurrentUserID(c)

	user, ok := h.userRepo.GetByID(uid)
	if !ok {
		ErrorResponse(c, http.StatusNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, user *models.User) {
	token, err := h.jwtService.GenerateToken(user.ID, user.Name)
	if err != nil {
		respondError(c, h.log, errors.Join(errors.New("failed to generate token"), err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.jwtService.Expiry().Seconds()), "/", "", h.secureCookie, true)
	c.JSON(status, models.LoginResponse{
		Token: token,
		User:  *user,
	})
}
