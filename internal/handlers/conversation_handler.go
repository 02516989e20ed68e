package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parlor/backend/internal/chat"
	"github.com/parlor/backend/internal/middleware"
	"github.com/parlor/backend/internal/models"
)

type ConversationHandler struct {
	service *chat.Service
	log     *slog.Logger
}

func NewConversationHandler(service *chat.Service, log *slog.Logger) *ConversationHandler {
	return &ConversationHandler{service: service, log: log}
}

// conversationSummary is a list entry. Direct conversations are listed under
// the other member's name instead of their token title.
type conversationSummary struct {
	Conversation *models.Conversation `json:"conversation"`
	DisplayName  string               `json:"display_name"`
}

func summarize(actor string, conversations []*models.Conversation) []conversationSummary {
	out := make([]conversationSummary, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, conversationSummary{Conversation: c, DisplayName: c.DirectCounterpart(actor)})
	}
	return out
}

// GetConversations lists every conversation the caller may see plus the
// ones they belong to.
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	all, mine := h.service.Conversations(actor)

	visible := make([]*models.Conversation, 0, len(all))
	for _, conv := range all {
		if conv.IsNormal() || conv.IsMember(actor) {
			visible = append(visible, conv)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": summarize(actor, visible),
		"mine":          summarize(actor, mine),
	})
}

// CreateConversation creates a new conversation
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	conversation, err := h.service.CreateConversation(middleware.CurrentUser(c), req.Title, req.Type, req.Members)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, conversation)
}
