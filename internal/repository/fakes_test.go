package repository

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
)

var errDiskFull = errors.New("disk full")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePersister records every call and fails on demand.
type fakePersister struct {
	mu      sync.Mutex
	fail    bool
	seed    []*models.Conversation
	writes  []*models.Conversation
	deleted []*models.Conversation
	users   []*models.User
	msgs    []*models.Message
	prof    []*models.Profile
}

func (f *fakePersister) err() error {
	if f.fail {
		return errDiskFull
	}
	return nil
}

func (f *fakePersister) LoadConversations() ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seed, f.err()
}

func (f *fakePersister) WriteConversation(c *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	f.writes = append(f.writes, c)
	return nil
}

func (f *fakePersister) DeleteConversations(cs []*models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err(); err != nil {
		return err
	}
	f.deleted = append(f.deleted, cs...)
	return nil
}

func (f *fakePersister) LoadUsers() ([]*models.User, error) { return f.users, f.err() }

func (f *fakePersister) WriteUser(u *models.User) error {
	if err := f.err(); err != nil {
		return err
	}
	f.users = append(f.users, u)
	return nil
}

func (f *fakePersister) LoadMessages() ([]*models.Message, error) { return f.msgs, f.err() }

func (f *fakePersister) WriteMessage(m *models.Message) error {
	if err := f.err(); err != nil {
		return err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakePersister) DeleteMessages([]*models.Message) error { return f.err() }

func (f *fakePersister) LoadProfiles() ([]*models.Profile, error) { return f.prof, f.err() }

func (f *fakePersister) WriteProfile(p *models.Profile) error {
	if err := f.err(); err != nil {
		return err
	}
	f.prof = append(f.prof, p)
	return nil
}

func (f *fakePersister) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func normal(title string) *models.Conversation {
	return models.NewConversation(uuid.New(), uuid.New(), title, time.Now())
}

func mustConversation(c *models.Conversation, err error) *models.Conversation {
	if err != nil {
		panic(err)
	}
	return c
}

func directBetween(a, b string) *models.Conversation {
	return mustConversation(models.NewConversationWithMembers(
		uuid.New(), uuid.New(), uuid.NewString(), time.Now(), []string{a, b}, models.ConversationDirect))
}

func groupOf(title string, members ...string) *models.Conversation {
	return mustConversation(models.NewConversationWithMembers(
		uuid.New(), uuid.New(), title, time.Now(), members, models.ConversationGroup))
}
