package repository

import "github.com/parlor/backend/internal/models"

// ConversationPersister is the durable store behind ConversationRepository.
type ConversationPersister interface {
	LoadConversations() ([]*models.Conversation, error)
	WriteConversation(conversation *models.Conversation) error
	DeleteConversations(conversations []*models.Conversation) error
}

// UserPersister is the durable store behind UserRepository.
type UserPersister interface {
	LoadUsers() ([]*models.User, error)
	WriteUser(user *models.User) error
}

// MessagePersister is the durable store behind MessageRepository.
type MessagePersister interface {
	LoadMessages() ([]*models.Message, error)
	WriteMessage(message *models.Message) error
	DeleteMessages(messages []*models.Message) error
}

// ProfilePersister is the durable store behind ProfileRepository.
type ProfilePersister interface {
	LoadProfiles() ([]*models.Profile, error)
	WriteProfile(profile *models.Profile) error
}
