package chat

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
	"github.com/parlor/backend/internal/repository"
	"github.com/parlor/backend/internal/sanitize"
	"github.com/parlor/backend/internal/storage/memory"
)

type fixture struct {
	store    *memory.Store
	convRepo *repository.ConversationRepository
	msgRepo  *repository.MessageRepository
	userRepo *repository.UserRepository
	events   *recordingBroadcaster
	service  *Service
	dms      *DirectMessages
}

func newFixture(t *testing.T, usernames ...string) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()

	f := &fixture{
		store:    store,
		convRepo: repository.NewConversationRepository(store, log),
		msgRepo:  repository.NewMessageRepository(store, log),
		userRepo: repository.NewUserRepository(store, log),
		events:   &recordingBroadcaster{},
	}
	for _, name := range usernames {
		if err := f.userRepo.Add(&models.User{ID: uuid.New(), Name: name}); err != nil {
			t.Fatalf("failed to add user %s: %v", name, err)
		}
	}
	f.service = NewService(f.convRepo, f.msgRepo, f.userRepo, sanitize.NewStrict(), f.events, log)
	f.dms = NewDirectMessages(f.convRepo, f.userRepo, log)
	return f
}

type recordingBroadcaster struct {
	mu        sync.Mutex
	envelopes []models.Envelope
}

func (r *recordingBroadcaster) Broadcast(env models.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
	return nil
}

func (r *recordingBroadcaster) all() []models.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Envelope(nil), r.envelopes...)
}
