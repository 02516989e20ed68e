// Package memory is a dev-only persister used when no database is configured.
// Nothing survives a restart.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
)

type Store struct {
	mu            sync.Mutex
	conversations []*models.Conversation
	users         []*models.User
	messages      []*models.Message
	profiles      map[string]*models.Profile
}

func NewStore() *Store {
	return &Store{profiles: make(map[string]*models.Profile)}
}

func (s *Store) LoadConversations() ([]*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Conversation(nil), s.conversations...), nil
}

// WriteConversation inserts or replaces by ID, keeping first-write order.
func (s *Store) WriteConversation(c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.conversations {
		if existing.ID == c.ID {
			s.conversations[i] = c
			return nil
		}
	}
	s.conversations = append(s.conversations, c)
	return nil
}

func (s *Store) DeleteConversations(cs []*models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[uuid.UUID]struct{}, len(cs))
	for _, c := range cs {
		drop[c.ID] = struct{}{}
	}
	kept := s.conversations[:0]
	for _, c := range s.conversations {
		if _, ok := drop[c.ID]; !ok {
			kept = append(kept, c)
		}
	}
	s.conversations = kept
	return nil
}

func (s *Store) LoadUsers() ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.User(nil), s.users...), nil
}

func (s *Store) WriteUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
	return nil
}

func (s *Store) LoadMessages() ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Message(nil), s.messages...), nil
}

func (s *Store) WriteMessage(m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

func (s *Store) DeleteMessages(ms []*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[uuid.UUID]struct{}, len(ms))
	for _, m := range ms {
		drop[m.ID] = struct{}{}
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if _, ok := drop[m.ID]; !ok {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

func (s *Store) LoadProfiles() ([]*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Store) WriteProfile(p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	s.profiles[p.Username] = &copied
	return nil
}

func (s *Store) Close() error { return nil }
