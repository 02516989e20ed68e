package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parlor/backend/internal/access"
	"github.com/parlor/backend/internal/models"
)

// ErrorResponse sends a standardized error response and logs at caller if needed
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondError maps a domain error onto the response. Access failures become
// redirects to the login page or the conversation list.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		redirect(c, access.LoginPath)
	case errors.Is(err, models.ErrForbidden):
		redirect(c, access.ConversationsPath)
	case errors.Is(err, models.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrUnknownUser):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrDuplicateTitle),
		errors.Is(err, models.ErrDuplicateDirectMessage),
		errors.Is(err, models.ErrUsernameTaken):
		ErrorResponse(c, http.StatusConflict, err.Error())
	default:
		log.Error("http.request.failed", "path", c.Request.URL.Path, "error", err)
		ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}

// redirect uses 302 for reads and 303 after a form submission.
func redirect(c *gin.Context, location string) {
	status := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	c.Redirect(status, location)
}
