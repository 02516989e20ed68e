package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/parlor/backend/internal/models"
)

const uniqueViolation = "23505"

// ConversationStore persists conversations in Postgres. Members are kept in a
// TEXT[] column in join order.
type ConversationStore struct {
	db *DB
}

func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) LoadConversations() ([]*models.Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, title, type, members, created_at
		FROM conversations ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		var (
			id, ownerID uuid.UUID
			title       string
			typ         models.ConversationType
			members     []string
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&id, &ownerID, &title, &typ, pq.Array(&members), &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		c, err := models.NewConversationWithMembers(id, ownerID, title, createdAt.Time, members, typ)
		if err != nil {
			return nil, fmt.Errorf("conversation %q: %w", title, err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// WriteConversation inserts c or, when its ID exists, replaces its members.
// The unique title and direct_pair constraints back the in-memory checks
// when several processes share the database.
func (s *ConversationStore) WriteConversation(c *models.Conversation) error {
	var pair sql.NullString
	members := c.Members()
	if c.IsDirect() {
		pair = sql.NullString{String: models.DirectPairKey(members[0], members[1]), Valid: true}
	}
	if members == nil {
		members = []string{}
	}

	_, err := s.db.Exec(`
		INSERT INTO conversations (id, owner_id, title, type, members, direct_pair, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET members = EXCLUDED.members
	`,
		c.ID,
		c.OwnerID,
		c.Title,
		string(c.Type),
		pq.Array(members),
		pair,
		c.CreatedAt,
	)
	if err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

func (s *ConversationStore) DeleteConversations(conversations []*models.Conversation) error {
	if len(conversations) == 0 {
		return nil
	}

	ids := lo.Map(conversations, func(c *models.Conversation, _ int) string { return c.ID.String() })
	if _, err := s.db.Exec("DELETE FROM conversations WHERE id = ANY($1::uuid[])", pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}
	return nil
}

func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return fmt.Errorf("failed to write conversation: %w", err)
	}

	switch pqErr.Constraint {
	case "conversations_title_key":
		return fmt.Errorf("%s: %w", pqErr.Message, models.ErrDuplicateTitle)
	case "conversations_direct_pair_key":
		return fmt.Errorf("%s: %w", pqErr.Message, models.ErrDuplicateDirectMessage)
	}
	return fmt.Errorf("failed to write conversation: %w", err)
}
