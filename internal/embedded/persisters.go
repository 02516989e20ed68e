package embedded

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/parlor/backend/internal/models"
)

func (s *Store) LoadConversations() ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := s.scan(conversationPrefix, func(value []byte) error {
		c, err := models.DecodeConversation(value)
		if err != nil {
			return err
		}
		conversations = append(conversations, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	return conversations, nil
}

func (s *Store) WriteConversation(c *models.Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %q: %w", c.Title, err)
	}
	return s.upsertSequenced(s.convSeq, conversationPrefix, conversationIDIndex, c.ID, data, true)
}

func (s *Store) DeleteConversations(conversations []*models.Conversation) error {
	ids := lo.Map(conversations, func(c *models.Conversation, _ int) uuid.UUID { return c.ID })
	return s.deleteIndexed(conversationIDIndex, ids)
}

func (s *Store) LoadMessages() ([]*models.Message, error) {
	var messages []*models.Message
	err := s.scan(messagePrefix, func(value []byte) error {
		var m models.Message
		if err := json.Unmarshal(value, &m); err != nil {
			return err
		}
		messages = append(messages, &m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}

func (s *Store) WriteMessage(m *models.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return s.upsertSequenced(s.msgSeq, messagePrefix, messageIDIndex, m.ID, data, false)
}

func (s *Store) DeleteMessages(messages []*models.Message) error {
	ids := lo.Map(messages, func(m *models.Message, _ int) uuid.UUID { return m.ID })
	return s.deleteIndexed(messageIDIndex, ids)
}

// userRecord keeps the password hash, which models.User leaves out of JSON.
type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoadUsers returns users ordered by name.
func (s *Store) LoadUsers() ([]*models.User, error) {
	var users []*models.User
	err := s.scan(userPrefix, func(value []byte) error {
		var r userRecord
		if err := json.Unmarshal(value, &r); err != nil {
			return err
		}
		users = append(users, &models.User{ID: r.ID, Name: r.Name, PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

func (s *Store) WriteUser(u *models.User) error {
	return s.put(userPrefix+u.Name, userRecord{
		ID:           u.ID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
}

func (s *Store) LoadProfiles() ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := s.scan(profilePrefix, func(value []byte) error {
		var p models.Profile
		if err := json.Unmarshal(value, &p); err != nil {
			return err
		}
		profiles = append(profiles, &p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return profiles, nil
}

func (s *Store) WriteProfile(p *models.Profile) error {
	return s.put(profilePrefix+p.Username, p)
}
