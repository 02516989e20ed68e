package repository

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/parlor/backend/internal/models"
	"github.com/samber/lo"
)

// ConversationRepository keeps every conversation in memory, indexed by title
// and by direct-message pair, and writes each mutation through to a persister.
//
// One lock guards the check and the insert of Add and FindOrAddDirect, so two
// requests can never both create the same title or the same direct message.
type ConversationRepository struct {
	persister ConversationPersister
	log       *slog.Logger

	mu            sync.RWMutex
	conversations []*models.Conversation
	byTitle       map[string]*models.Conversation
	byPair        map[string]*models.Conversation
}

func NewConversationRepository(persister ConversationPersister, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{
		persister: persister,
		log:       log,
		byTitle:   make(map[string]*models.Conversation),
		byPair:    make(map[string]*models.Conversation),
	}
}

// Load replaces the in-memory state with everything the persister holds.
func (r *ConversationRepository) Load() error {
	loaded, err := r.persister.LoadConversations()
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conversations = nil
	r.byTitle = make(map[string]*models.Conversation, len(loaded))
	r.byPair = make(map[string]*models.Conversation)
	for _, c := range loaded {
		if _, taken := r.byTitle[c.Title]; taken {
			r.log.Warn("conversation.load.duplicate_title", "title", c.Title, "id", c.ID)
			continue
		}
		r.insertLocked(c)
	}

	r.log.Info("conversation.load", "count", len(r.conversations))
	return nil
}

// Add stores a new conversation. It fails with ErrDuplicateTitle when the
// title is in use and with ErrDuplicateDirectMessage when a direct conversation
// already exists for the same pair. The repository is unchanged on error.
func (r *ConversationRepository) Add(conversation *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addLocked(conversation)
}

func (r *ConversationRepository) addLocked(conversation *models.Conversation) error {
	if _, taken := r.byTitle[conversation.Title]; taken {
		return fmt.Errorf("failed to add conversation %q: %w", conversation.Title, models.ErrDuplicateTitle)
	}
	if conversation.IsDirect() {
		if _, exists := r.byPair[pairKey(conversation)]; exists {
			return fmt.Errorf("failed to add conversation %q: %w", conversation.Title, models.ErrDuplicateDirectMessage)
		}
	}

	if err := r.persister.WriteConversation(conversation); err != nil {
		return fmt.Errorf("failed to persist conversation %q: %w: %w", conversation.Title, models.ErrPersistence, err)
	}

	r.insertLocked(conversation)
	r.log.Info("conversation.created", "title", conversation.Title, "type", conversation.Type, "id", conversation.ID)
	return nil
}

func (r *ConversationRepository) insertLocked(conversation *models.Conversation) {
	r.conversations = append(r.conversations, conversation)
	r.byTitle[conversation.Title] = conversation
	if conversation.IsDirect() {
		r.byPair[pairKey(conversation)] = conversation
	}
}

// FindOrAddDirect returns the direct conversation between a and b, building
// and storing one with build when none exists. The lookup and the insert run
// under the same lock. created reports whether build was used.
func (r *ConversationRepository) FindOrAddDirect(
	a, b string,
	build func() (*models.Conversation, error),
) (conversation *models.Conversation, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byPair[models.DirectPairKey(a, b)]; ok {
		return existing, false, nil
	}

	conversation, err = build()
	if err != nil {
		return nil, false, err
	}
	if !conversation.IsDirect() || pairKey(conversation) != models.DirectPairKey(a, b) {
		return nil, false, fmt.Errorf("built conversation does not match pair: %w", models.ErrInvalidArgument)
	}

	if err := r.addLocked(conversation); err != nil {
		return nil, false, err
	}
	return conversation, true, nil
}

// AddMember adds username to the conversation titled title and writes the
// change through. It returns false, with no error, when the conversation
// refuses the member.
func (r *ConversationRepository) AddMember(title, username string, users models.UserLookup) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.byTitle[title]
	if !ok {
		return false, fmt.Errorf("conversation %q: %w", title, models.ErrNotFound)
	}
	if !conversation.AddMember(username, users) {
		return false, nil
	}

	if err := r.persister.WriteConversation(conversation); err != nil {
		return true, fmt.Errorf("failed to persist member %q of %q: %w: %w", username, title, models.ErrPersistence, err)
	}

	r.log.Info("conversation.member.added", "title", title, "username", username)
	return true, nil
}

func (r *ConversationRepository) FindByTitle(title string) (*models.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byTitle[title]
	return c, ok
}

func (r *ConversationRepository) IsTitleTaken(title string) bool {
	_, ok := r.FindByTitle(title)
	return ok
}

// FindDirectMessage returns the direct conversation between a and b in either
// order. Group conversations are never returned.
func (r *ConversationRepository) FindDirectMessage(a, b string) (*models.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byPair[models.DirectPairKey(a, b)]
	return c, ok
}

// FindForUser returns the direct and group conversations username belongs to,
// in creation order. Normal conversations are not included.
func (r *ConversationRepository) FindForUser(username string) []*models.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Filter(r.conversations, func(c *models.Conversation, _ int) bool {
		return !c.IsNormal() && c.IsMember(username)
	})
}

// All returns every conversation in creation order.
func (r *ConversationRepository) All() []*models.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*models.Conversation(nil), r.conversations...)
}

// DeleteAll empties the repository and removes the same conversations from
// the persister. Meant for reset tooling and tests.
func (r *ConversationRepository) DeleteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persister.DeleteConversations(r.conversations); err != nil {
		return fmt.Errorf("failed to delete conversations: %w: %w", models.ErrPersistence, err)
	}

	r.log.Info("conversation.deleted_all", "count", len(r.conversations))
	r.conversations = nil
	r.byTitle = make(map[string]*models.Conversation)
	r.byPair = make(map[string]*models.Conversation)
	return nil
}

func (r *ConversationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conversations)
}

func pairKey(c *models.Conversation) string {
	members := c.Members()
	return models.DirectPairKey(members[0], members[1])
}
