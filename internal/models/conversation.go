package models

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ConversationType string

const (
	ConversationNormal ConversationType = "normal"
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Valid reports whether t is one of the known conversation types.
func (t ConversationType) Valid() bool {
	switch t {
	case ConversationNormal, ConversationDirect, ConversationGroup:
		return true
	}
	return false
}

// UserLookup resolves usernames to users.
type UserLookup interface {
	GetUser(username string) (*User, bool)
	GetUserID(username string) (uuid.UUID, bool)
}

// Conversation is a chat room. Normal conversations are public and carry no
// members; direct conversations have exactly two members fixed at creation;
// group conversations start with at least one member and may grow.
//
// A Conversation holds a mutex and must not be copied after creation.
type Conversation struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Title     string
	CreatedAt time.Time
	Type      ConversationType

	mu      sync.RWMutex
	members []string
}

// NewConversation creates a normal conversation.
func NewConversation(id, ownerID uuid.UUID, title string, createdAt time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: createdAt,
		Type:      ConversationNormal,
	}
}

// NewConversationWithMembers creates a conversation of the given type with an
// initial member list.
func NewConversationWithMembers(
	id, ownerID uuid.UUID,
	title string,
	createdAt time.Time,
	members []string,
	typ ConversationType,
) (*Conversation, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown conversation type %q: %w", typ, ErrInvalidArgument)
	}
	if err := validateMembers(members, typ); err != nil {
		return nil, err
	}

	return &Conversation{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: createdAt,
		Type:      typ,
		members:   append([]string(nil), members...),
	}, nil
}

func validateMembers(members []string, typ ConversationType) error {
	switch typ {
	case ConversationNormal:
		if len(members) != 0 {
			return fmt.Errorf("normal conversation cannot have members: %w", ErrInvalidArgument)
		}
		return nil
	case ConversationDirect:
		if len(members) != 2 {
			return fmt.Errorf("direct conversation needs exactly 2 members, got %d: %w", len(members), ErrInvalidArgument)
		}
	case ConversationGroup:
		if len(members) == 0 {
			return fmt.Errorf("group conversation needs at least one member: %w", ErrInvalidArgument)
		}
	}

	if lo.Contains(members, "") {
		return fmt.Errorf("empty member username: %w", ErrInvalidArgument)
	}
	if len(lo.Uniq(members)) != len(members) {
		return fmt.Errorf("duplicate member username: %w", ErrInvalidArgument)
	}
	return nil
}

func (c *Conversation) IsNormal() bool { return c.Type == ConversationNormal }
func (c *Conversation) IsDirect() bool { return c.Type == ConversationDirect }
func (c *Conversation) IsGroup() bool  { return c.Type == ConversationGroup }

// Members returns a copy of the member usernames in join order.
func (c *Conversation) Members() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.members...)
}

// AddMember appends username to a group conversation. It returns false when the
// username is empty, does not resolve through users, is already a member, or
// the conversation is not a group.
func (c *Conversation) AddMember(username string, users UserLookup) bool {
	if username == "" || !c.IsGroup() {
		return false
	}
	if _, ok := users.GetUser(username); !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if lo.Contains(c.members, username) {
		return false
	}
	c.members = append(c.members, username)
	return true
}

// IsMember reports whether username is an explicit member. Normal conversations
// have no members, so it is always false for them.
func (c *Conversation) IsMember(username string) bool {
	if username == "" || c.IsNormal() {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Contains(c.members, username)
}

// DirectCounterpart returns the member of a direct conversation that is not
// current. For any other conversation type it falls back to the title.
func (c *Conversation) DirectCounterpart(current string) string {
	if !c.IsDirect() {
		return c.Title
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.members[0] == current {
		return c.members[1]
	}
	return c.members[0]
}

type conversationJSON struct {
	ID        uuid.UUID        `json:"id"`
	OwnerID   uuid.UUID        `json:"owner_id"`
	Title     string           `json:"title"`
	CreatedAt time.Time        `json:"created_at"`
	Type      ConversationType `json:"type"`
	Members   []string         `json:"members"`
}

func (c *Conversation) MarshalJSON() ([]byte, error) {
	members := c.Members()
	if members == nil {
		members = []string{}
	}
	return json.Marshal(conversationJSON{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Type:      c.Type,
		Members:   members,
	})
}

// DecodeConversation rebuilds a conversation from its JSON form, enforcing the
// same member rules as NewConversationWithMembers.
func DecodeConversation(data []byte) (*Conversation, error) {
	var raw conversationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return NewConversationWithMembers(raw.ID, raw.OwnerID, raw.Title, raw.CreatedAt, raw.Members, raw.Type)
}

type CreateConversationRequest struct {
	Title   string           `json:"title" form:"title" binding:"required,alphanum,max=100"`
	Type    ConversationType `json:"type" form:"type"`
	Members []string         `json:"members" form:"members"`
}

type AddMemberRequest struct {
	Username string `json:"username" form:"username"`
}

// DirectPairKey returns an order-independent key for a pair of usernames.
func DirectPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
