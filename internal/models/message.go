package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is append-only: once stored it is never edited or removed.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	AuthorID       uuid.UUID `json:"author_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	Content string `json:"content" form:"message" binding:"required,max=10000"`
}
