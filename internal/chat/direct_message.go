// Package chat holds the workflows that sit between the HTTP layer and the
// repositories: opening conversations, posting messages, managing members and
// resolving direct messages.
package chat

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
	"github.com/parlor/backend/internal/repository"
)

// DirectMessages finds or creates the single direct conversation between two
// users.
type DirectMessages struct {
	convRepo *repository.ConversationRepository
	users    models.UserLookup
	log      *slog.Logger

	newTitle func() string
	now      func() time.Time
}

func NewDirectMessages(convRepo *repository.ConversationRepository, users models.UserLookup, log *slog.Logger) *DirectMessages {
	return &DirectMessages{
		convRepo: convRepo,
		users:    users,
		log:      log,
		newTitle: uuid.NewString,
		now:      time.Now,
	}
}

// FindOrCreate returns the title of the direct conversation between actor and
// target, creating it when needed. The title of a new conversation is a random
// token so that it reveals nothing about the participants.
func (d *DirectMessages) FindOrCreate(actor, target string) (string, error) {
	if actor == "" {
		return "", models.ErrUnauthenticated
	}
	if actor == target {
		return "", fmt.Errorf("cannot message yourself: %w", models.ErrInvalidArgument)
	}

	if existing, ok := d.convRepo.FindDirectMessage(actor, target); ok {
		return existing.Title, nil
	}

	conversation, created, err := d.convRepo.FindOrAddDirect(actor, target, func() (*models.Conversation, error) {
		ownerID, ok := d.users.GetUserID(actor)
		if !ok {
			return nil, fmt.Errorf("user %q: %w", actor, models.ErrUnknownUser)
		}
		if _, ok := d.users.GetUserID(target); !ok {
			return nil, fmt.Errorf("user %q: %w", target, models.ErrUnknownUser)
		}

		return models.NewConversationWithMembers(
			uuid.New(),
			ownerID,
			d.newTitle(),
			d.now(),
			[]string{actor, target},
			models.ConversationDirect,
		)
	})
	if err != nil {
		return "", err
	}

	if created {
		d.log.Info("direct_message.created", "title", conversation.Title, "owner", actor)
	}
	return conversation.Title, nil
}
