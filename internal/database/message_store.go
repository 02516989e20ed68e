package database

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/parlor/backend/internal/models"
)

type MessageStore struct {
	db *DB
}

func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) LoadMessages() ([]*models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, author_id, content, created_at
		FROM messages ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *MessageStore) WriteMessage(m *models.Message) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (id, conversation_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, m.ID, m.ConversationID, m.AuthorID, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (s *MessageStore) DeleteMessages(messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := lo.Map(messages, func(m *models.Message, _ int) string { return m.ID.String() })
	if _, err := s.db.Exec("DELETE FROM messages WHERE id = ANY($1::uuid[])", pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}
