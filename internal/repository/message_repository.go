package repository

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
)

// MessageRepository keeps messages in memory grouped by conversation.
type MessageRepository struct {
	persister MessagePersister
	log       *slog.Logger

	mu             sync.RWMutex
	messages       []*models.Message
	byConversation map[uuid.UUID][]*models.Message
}

func NewMessageRepository(persister MessagePersister, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		persister:      persister,
		log:            log,
		byConversation: make(map[uuid.UUID][]*models.Message),
	}
}

// Load replaces the in-memory state with the persisted messages.
func (r *MessageRepository) Load() error {
	messages, err := r.persister.LoadMessages()
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = nil
	r.byConversation = make(map[uuid.UUID][]*models.Message)
	for _, m := range messages {
		r.insertLocked(m)
	}

	r.log.Info("message.load", "count", len(messages))
	return nil
}

// Add appends a message and writes it through.
func (r *MessageRepository) Add(message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persister.WriteMessage(message); err != nil {
		return fmt.Errorf("failed to persist message: %w: %w", models.ErrPersistence, err)
	}

	r.insertLocked(message)
	r.log.Debug("message.created", "id", message.ID, "conversation_id", message.ConversationID)
	return nil
}

func (r *MessageRepository) insertLocked(message *models.Message) {
	r.messages = append(r.messages, message)
	r.byConversation[message.ConversationID] = append(r.byConversation[message.ConversationID], message)
}

// ForConversation returns the messages of a conversation in the order they
// were added.
func (r *MessageRepository) ForConversation(conversationID uuid.UUID) []*models.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*models.Message(nil), r.byConversation[conversationID]...)
}

// DeleteAll empties the repository and the persister. Meant for reset tooling.
func (r *MessageRepository) DeleteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persister.DeleteMessages(r.messages); err != nil {
		return fmt.Errorf("failed to delete messages: %w: %w", models.ErrPersistence, err)
	}

	r.messages = nil
	r.byConversation = make(map[uuid.UUID][]*models.Message)
	return nil
}

func (r *MessageRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.messages)
}
