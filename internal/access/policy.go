// Package access decides who may see and edit a conversation. It performs no
// I/O; the HTTP layer turns a Decision into a redirect.
package access

import (
	"fmt"

	"github.com/parlor/backend/internal/models"
)

type Decision int

const (
	Allowed Decision = iota
	RedirectToLogin
	RedirectToList
)

const (
	LoginPath         = "/login"
	ConversationsPath = "/conversations"
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToList:
		return "redirect_to_list"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Err maps a decision onto the domain error taxonomy.
func (d Decision) Err() error {
	switch d {
	case RedirectToLogin:
		return models.ErrUnauthenticated
	case RedirectToList:
		return models.ErrForbidden
	}
	return nil
}

// Location is the redirect target for a denied decision, or "" when allowed.
func (d Decision) Location() string {
	switch d {
	case RedirectToLogin:
		return LoginPath
	case RedirectToList:
		return ConversationsPath
	}
	return ""
}

// Evaluate decides whether actor may view c. An empty actor is anonymous.
// Normal conversations are open to everyone, anonymous visitors included.
func Evaluate(actor string, c *models.Conversation) Decision {
	if c.IsNormal() {
		return Allowed
	}
	if actor == "" {
		return RedirectToLogin
	}
	if !c.IsMember(actor) {
		return RedirectToList
	}
	return Allowed
}

// CanAddMember reports whether actor may add members to c. Only members of a
// group conversation may do so.
func CanAddMember(actor string, c *models.Conversation) error {
	if actor == "" {
		return models.ErrUnauthenticated
	}
	if !c.IsGroup() {
		return fmt.Errorf("cannot add members to a %s conversation: %w", c.Type, models.ErrInvalidArgument)
	}
	return Evaluate(actor, c).Err()
}
