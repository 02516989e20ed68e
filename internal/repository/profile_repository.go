package repository

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
)

// ProfileRepository holds one profile per username.
type ProfileRepository struct {
	persister ProfilePersister
	log       *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	profiles map[string]*models.Profile
}

func NewProfileRepository(persister ProfilePersister, log *slog.Logger) *ProfileRepository {
	return &ProfileRepository{
		persister: persister,
		log:       log,
		now:       time.Now,
		profiles:  make(map[string]*models.Profile),
	}
}

// Load replaces the in-memory state with the persisted profiles.
func (r *ProfileRepository) Load() error {
	profiles, err := r.persister.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = make(map[string]*models.Profile, len(profiles))
	for _, p := range profiles {
		r.profiles[p.Username] = p
	}
	return nil
}

// Get returns a copy of the profile for username.
func (r *ProfileRepository) Get(username string) (models.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[username]
	if !ok {
		return models.Profile{}, false
	}
	return *p, true
}

// SetAbout creates or updates the about text of username's profile.
func (r *ProfileRepository) SetAbout(username, about string) (models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := models.Profile{ID: uuid.New(), Username: username}
	if current, ok := r.profiles[username]; ok {
		next = *current
	}
	next.About = about
	next.UpdatedAt = r.now()

	if err := r.persister.WriteProfile(&next); err != nil {
		return models.Profile{}, fmt.Errorf("failed to persist profile %q: %w: %w", username, models.ErrPersistence, err)
	}

	r.profiles[username] = &next
	r.log.Info("profile.updated", "username", username)
	return next, nil
}
