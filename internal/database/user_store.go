package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/parlor/backend/internal/models"
)

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) LoadUsers() ([]*models.User, error) {
	rows, err := s.db.Query("SELECT id, username, password_hash, created_at FROM users ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *UserStore) WriteUser(u *models.User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, u.ID, u.Name, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", pqErr.Message, models.ErrUsernameTaken)
		}
		return fmt.Errorf("failed to write user: %w", err)
	}
	return nil
}
