package database

import (
	"fmt"

	"github.com/parlor/backend/internal/models"
)

type ProfileStore struct {
	db *DB
}

func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) LoadProfiles() ([]*models.Profile, error) {
	rows, err := s.db.Query("SELECT id, username, about, updated_at FROM profiles ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p := &models.Profile{}
		if err := rows.Scan(&p.ID, &p.Username, &p.About, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *ProfileStore) WriteProfile(p *models.Profile) error {
	_, err := s.db.Exec(`
		INSERT INTO profiles (id, username, about, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET about = EXCLUDED.about, updated_at = EXCLUDED.updated_at
	`, p.ID, p.Username, p.About, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to write profile %q: %w", p.Username, err)
	}
	return nil
}
