package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/parlor/backend/internal/chat"
	"github.com/parlor/backend/internal/middleware"
	"github.com/parlor/backend/internal/models"
)

const (
	addMemberAdded    = "added"
	addMemberRejected = "unsuccessful"
)

type ChatHandler struct {
	service *chat.Service
	log     *slog.Logger
}

func NewChatHandler(service *chat.Service, log *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, log: log}
}

func chatPath(title string) string {
	return "/chat/" + url.PathEscape(title)
}

// GetChat returns a conversation and its messages, or redirects callers that
// may not see it.
func (h *ChatHandler) GetChat(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	conversation, messages, err := h.service.Open(actor, c.Param("title"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if messages == nil {
		messages = []*models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation": conversation,
		"display_name": conversation.DirectCounterpart(actor),
		"messages":     messages,
	})
}

// PostMessage appends a message and redirects back to the conversation.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	title := c.Param("title")
	if _, err := h.service.PostMessage(middleware.CurrentUser(c), title, req.Content); err != nil {
		respondError(c, h.log, err)
		return
	}

	redirect(c, chatPath(title))
}

// AddMember adds a user to a group conversation and redirects back with the
// outcome in the add_member query parameter.
func (h *ChatHandler) AddMember(c *gin.Context) {
	var req models.AddMemberRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	title := c.Param("title")
	added, err := h.service.AddMember(middleware.CurrentUser(c), title, req.Username)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	outcome := addMemberRejected
	if added {
		outcome = addMemberAdded
	}
	redirect(c, chatPath(title)+"?add_member="+outcome)
}
