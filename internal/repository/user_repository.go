package repository

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
)

// UserRepository is the in-memory user directory. It satisfies
// models.UserLookup.
type UserRepository struct {
	persister UserPersister
	log       *slog.Logger

	mu     sync.RWMutex
	byName map[string]*models.User
	byID   map[uuid.UUID]*models.User
}

func NewUserRepository(persister UserPersister, log *slog.Logger) *UserRepository {
	return &UserRepository{
		persister: persister,
		log:       log,
		byName:    make(map[string]*models.User),
		byID:      make(map[uuid.UUID]*models.User),
	}
}

// Load replaces the in-memory state with the persisted users.
func (r *UserRepository) Load() error {
	users, err := r.persister.LoadUsers()
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName = make(map[string]*models.User, len(users))
	r.byID = make(map[uuid.UUID]*models.User, len(users))
	for _, u := range users {
		r.byName[u.Name] = u
		r.byID[u.ID] = u
	}

	r.log.Info("user.load", "count", len(users))
	return nil
}

// Add stores a new user, failing with ErrUsernameTaken on a name collision.
func (r *UserRepository) Add(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[user.Name]; taken {
		return fmt.Errorf("failed to create user %q: %w", user.Name, models.ErrUsernameTaken)
	}
	if err := r.persister.WriteUser(user); err != nil {
		return fmt.Errorf("failed to persist user %q: %w: %w", user.Name, models.ErrPersistence, err)
	}

	r.byName[user.Name] = user
	r.byID[user.ID] = user
	r.log.Info("user.created", "username", user.Name, "id", user.ID)
	return nil
}

func (r *UserRepository) GetUser(username string) (*models.User, bool) {
	if username == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byName[username]
	return u, ok
}

func (r *UserRepository) GetUserID(username string) (uuid.UUID, bool) {
	u, ok := r.GetUser(username)
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	return u, ok
}

func (r *UserRepository) IsUsernameTaken(username string) bool {
	_, ok := r.GetUser(username)
	return ok
}

func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byName)
}
