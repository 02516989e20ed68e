package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/parlor/backend/internal/access"
	"github.com/parlor/backend/internal/chat"
	"github.com/parlor/backend/internal/middleware"
	"github.com/parlor/backend/internal/models"
	"github.com/parlor/backend/internal/repository"
	"github.com/parlor/backend/internal/sanitize"
)

// Presence reports whether a user has an open realtime connection. The
// websocket hub implements it.
type Presence interface {
	IsUserOnline(username string) bool
}

type ProfileHandler struct {
	profileRepo *repository.ProfileRepository
	userRepo    *repository.UserRepository
	dms         *chat.DirectMessages
	sanitizer   sanitize.Sanitizer
	presence    Presence
	log         *slog.Logger
}

func NewProfileHandler(
	profileRepo *repository.ProfileRepository,
	userRepo *repository.UserRepository,
	dms *chat.DirectMessages,
	sanitizer sanitize.Sanitizer,
	presence Presence,
	log *slog.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		dms:         dms,
		sanitizer:   sanitizer,
		presence:    presence,
		log:         log,
	}
}

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username)
}

// GetProfile shows a user's about text. Unknown users send the caller to
// their own profile, or to the login page when anonymous.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	name := c.Param("name")

	if _, ok := h.userRepo.GetUser(name); !ok {
		if actor != "" {
			redirect(c, profilePath(actor))
		} else {
			redirect(c, access.LoginPath)
		}
		return
	}

	profile, _ := h.profileRepo.Get(name)
	c.JSON(http.StatusOK, gin.H{
		"username": name,
		"about":    profile.About,
		"is_owner": actor == name,
		"online":   h.presence != nil && h.presence.IsUserOnline(name),
	})
}

// UpdateProfile replaces the about text. Only the owner may do so.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	name := c.Param("name")

	if actor == "" {
		respondError(c, h.log, models.ErrUnauthenticated)
		return
	}
	if actor != name {
		redirect(c, profilePath(name))
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.profileRepo.SetAbout(name, h.sanitizer.Sanitize(req.About)); err != nil {
		respondError(c, h.log, err)
		return
	}
	redirect(c, profilePath(name))
}

// MessageUser opens the direct conversation with the profile owner.
func (h *ProfileHandler) MessageUser(c *gin.Context) {
	title, err := h.dms.FindOrCreate(middleware.CurrentUser(c), c.Param("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	redirect(c, chatPath(title))
}
