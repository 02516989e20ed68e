package chat

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/parlor/backend/internal/access"
	"github.com/parlor/backend/internal/models"
	"github.com/parlor/backend/internal/repository"
	"github.com/parlor/backend/internal/sanitize"
	"github.com/samber/lo"
)

var validate = validator.New()

// titleRule accepts ASCII letters and digits only.
const titleRule = "required,alphanum,max=100"

// Broadcaster delivers realtime events. The websocket hub implements it.
type Broadcaster interface {
	Broadcast(env models.Envelope) error
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(models.Envelope) error { return nil }

// Service runs the conversation workflows on behalf of an actor. An empty
// actor is an anonymous visitor.
type Service struct {
	convRepo  *repository.ConversationRepository
	msgRepo   *repository.MessageRepository
	userRepo  *repository.UserRepository
	sanitizer sanitize.Sanitizer
	events    Broadcaster
	log       *slog.Logger
	now       func() time.Time
}

func NewService(
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	sanitizer sanitize.Sanitizer,
	events Broadcaster,
	log *slog.Logger,
) *Service {
	if events == nil {
		events = nopBroadcaster{}
	}
	return &Service{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Open returns a conversation and its messages if actor may see it.
func (s *Service) Open(actor, title string) (*models.Conversation, []*models.Message, error) {
	conversation, ok := s.convRepo.FindByTitle(title)
	if !ok {
		return nil, nil, fmt.Errorf("conversation %q: %w", title, models.ErrNotFound)
	}
	if err := access.Evaluate(actor, conversation).Err(); err != nil {
		return nil, nil, err
	}
	return conversation, s.msgRepo.ForConversation(conversation.ID), nil
}

// PostMessage sanitizes content and appends it to the conversation titled
// title.
func (s *Service) PostMessage(actor, title, content string) (*models.Message, error) {
	if actor == "" {
		return nil, models.ErrUnauthenticated
	}
	author, ok := s.userRepo.GetUser(actor)
	if !ok {
		return nil, fmt.Errorf("user %q: %w", actor, models.ErrUnknownUser)
	}

	conversation, ok := s.convRepo.FindByTitle(title)
	if !ok {
		return nil, fmt.Errorf("conversation %q: %w", title, models.ErrNotFound)
	}
	if err := access.Evaluate(actor, conversation).Err(); err != nil {
		return nil, err
	}

	clean := s.sanitizer.Sanitize(content)
	if clean == "" {
		return nil, fmt.Errorf("message is empty after sanitizing: %w", models.ErrInvalidArgument)
	}

	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		AuthorID:       author.ID,
		Content:        clean,
		CreatedAt:      s.now(),
	}
	if err := s.msgRepo.Add(message); err != nil {
		return nil, err
	}

	s.publish(conversation, models.WSMessage{Event: models.EventMessageNew, Payload: message})
	return message, nil
}

// AddMember adds newUser to a group conversation actor belongs to. It reports
// false when newUser does not resolve or is already a member.
func (s *Service) AddMember(actor, title, newUser string) (bool, error) {
	conversation, ok := s.convRepo.FindByTitle(title)
	if !ok {
		return false, fmt.Errorf("conversation %q: %w", title, models.ErrNotFound)
	}
	if err := access.CanAddMember(actor, conversation); err != nil {
		return false, err
	}

	added, err := s.convRepo.AddMember(title, newUser, s.userRepo)
	if err != nil || !added {
		return added, err
	}

	s.publish(conversation, models.WSMessage{
		Event:   models.EventMemberAdded,
		Payload: models.WSMemberAddedPayload{Title: title, Username: newUser},
	})
	return true, nil
}

// CreateConversation creates a normal or group conversation owned by actor.
// Direct conversations are created through DirectMessages only.
func (s *Service) CreateConversation(actor, title string, typ models.ConversationType, members []string) (*models.Conversation, error) {
	if actor == "" {
		return nil, models.ErrUnauthenticated
	}
	owner, ok := s.userRepo.GetUser(actor)
	if !ok {
		return nil, fmt.Errorf("user %q: %w", actor, models.ErrUnknownUser)
	}
	if err := validate.Var(title, titleRule); err != nil {
		return nil, fmt.Errorf("title must contain only letters and digits: %w", models.ErrInvalidArgument)
	}
	if typ == "" {
		typ = models.ConversationNormal
	}

	var conversation *models.Conversation
	switch typ {
	case models.ConversationNormal:
		conversation = models.NewConversation(uuid.New(), owner.ID, title, s.now())
	case models.ConversationGroup:
		initial := []string{actor}
		for _, m := range members {
			if lo.Contains(initial, m) {
				continue
			}
			if _, ok := s.userRepo.GetUser(m); !ok {
				return nil, fmt.Errorf("user %q: %w", m, models.ErrUnknownUser)
			}
			initial = append(initial, m)
		}
		var err error
		conversation, err = models.NewConversationWithMembers(uuid.New(), owner.ID, title, s.now(), initial, typ)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("cannot create a %q conversation here: %w", typ, models.ErrInvalidArgument)
	}

	if err := s.convRepo.Add(conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// Conversations returns every conversation and the ones actor is a member of.
func (s *Service) Conversations(actor string) (all, mine []*models.Conversation) {
	all = s.convRepo.All()
	if actor != "" {
		mine = s.convRepo.FindForUser(actor)
	}
	return all, mine
}

func (s *Service) publish(conversation *models.Conversation, msg models.WSMessage) {
	env := models.Envelope{Public: conversation.IsNormal(), Recipients: conversation.Members(), Message: msg}
	if err := s.events.Broadcast(env); err != nil {
		s.log.Warn("chat.broadcast.failed", "title", conversation.Title, "event", msg.Event, "error", err)
	}
}
