package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeUsers map[string]*User

func (f fakeUsers) GetUser(username string) (*User, bool) {
	u, ok := f[username]
	return u, ok
}

func (f fakeUsers) GetUserID(username string) (uuid.UUID, bool) {
	u, ok := f[username]
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}

func newFakeUsers(names ...string) fakeUsers {
	users := fakeUsers{}
	for _, n := range names {
		users[n] = &User{ID: uuid.New(), Name: n}
	}
	return users
}

func TestNewConversation_IsNormal(t *testing.T) {
	c := NewConversation(uuid.New(), uuid.New(), "general", time.Now())

	if !c.IsNormal() {
		t.Fatalf("expected normal conversation, got %s", c.Type)
	}
	if len(c.Members()) != 0 {
		t.Fatalf("expected no members, got %v", c.Members())
	}
	if c.IsMember("Justin") {
		t.Fatal("normal conversation must not report members")
	}
}

func TestNewConversationWithMembers(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		typ     ConversationType
		wantErr bool
	}{
		{name: "Direct with two members", members: []string{"Justin", "Vasu"}, typ: ConversationDirect},
		{name: "Direct with one member", members: []string{"Justin"}, typ: ConversationDirect, wantErr: true},
		{name: "Direct with three members", members: []string{"a1", "b2", "c3"}, typ: ConversationDirect, wantErr: true},
		{name: "Direct with same member twice", members: []string{"Justin", "Justin"}, typ: ConversationDirect, wantErr: true},
		{name: "Group with one member", members: []string{"Justin"}, typ: ConversationGroup},
		{name: "Group with no members", members: nil, typ: ConversationGroup, wantErr: true},
		{name: "Group with empty username", members: []string{"Justin", ""}, typ: ConversationGroup, wantErr: true},
		{name: "Normal without members", members: nil, typ: ConversationNormal},
		{name: "Normal with members", members: []string{"Justin"}, typ: ConversationNormal, wantErr: true},
		{name: "Unknown type", members: []string{"Justin"}, typ: ConversationType("secret"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConversationWithMembers(uuid.New(), uuid.New(), "title", time.Now(), tt.members, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewConversationWithMembers() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if c.IsNormal() != (len(c.Members()) == 0) {
				t.Errorf("normal flag %v disagrees with members %v", c.IsNormal(), c.Members())
			}
		})
	}
}

func TestNewConversationWithMembers_CopiesInput(t *testing.T) {
	members := []string{"Justin"}
	c, err := NewConversationWithMembers(uuid.New(), uuid.New(), "team", time.Now(), members, ConversationGroup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	members[0] = "Mallory"
	if got := c.Members(); got[0] != "Justin" {
		t.Fatalf("conversation shares caller slice: %v", got)
	}
}

func TestConversation_AddMember(t *testing.T) {
	users := newFakeUsers("Justin", "addedUser")

	c, err := NewConversationWithMembers(uuid.New(), uuid.New(), "team", time.Now(), []string{"Justin"}, ConversationGroup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !c.AddMember("addedUser", users) {
		t.Fatal("expected addedUser to be added")
	}
	assertMembers(t, c, "Justin", "addedUser")

	if c.AddMember("", users) {
		t.Error("empty username must not be added")
	}
	if c.AddMember("unknownUser", users) {
		t.Error("unknown user must not be added")
	}
	if c.AddMember("addedUser", users) {
		t.Error("existing member must not be added twice")
	}
	assertMembers(t, c, "Justin", "addedUser")
}

func TestConversation_AddMember_RejectedForDirectAndNormal(t *testing.T) {
	users := newFakeUsers("Justin", "Vasu", "Cynthia")

	direct, err := NewConversationWithMembers(uuid.New(), uuid.New(), "dm", time.Now(), []string{"Justin", "Vasu"}, ConversationDirect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if direct.AddMember("Cynthia", users) {
		t.Error("direct conversation must not grow")
	}
	assertMembers(t, direct, "Justin", "Vasu")

	normal := NewConversation(uuid.New(), uuid.New(), "general", time.Now())
	if normal.AddMember("Cynthia", users) {
		t.Error("normal conversation must not gain members")
	}
	if !normal.IsNormal() || len(normal.Members()) != 0 {
		t.Error("normal conversation changed shape")
	}
}

func TestConversation_IsMember(t *testing.T) {
	c, err := NewConversationWithMembers(uuid.New(), uuid.New(), "team", time.Now(), []string{"Justin", "Vasu"}, ConversationGroup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !c.IsMember("Vasu") {
		t.Error("Vasu should be a member")
	}
	if c.IsMember("vasu") {
		t.Error("membership is case sensitive")
	}
	if c.IsMember("") {
		t.Error("empty username is never a member")
	}
}

func TestConversation_DirectCounterpart(t *testing.T) {
	direct, err := NewConversationWithMembers(uuid.New(), uuid.New(), "token", time.Now(), []string{"Justin", "Vasu"}, ConversationDirect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := direct.DirectCounterpart("Justin"); got != "Vasu" {
		t.Errorf("DirectCounterpart(Justin) = %q, want Vasu", got)
	}
	if got := direct.DirectCounterpart("Vasu"); got != "Justin" {
		t.Errorf("DirectCounterpart(Vasu) = %q, want Justin", got)
	}

	group, _ := NewConversationWithMembers(uuid.New(), uuid.New(), "team", time.Now(), []string{"Justin"}, ConversationGroup)
	if got := group.DirectCounterpart("Justin"); got != "team" {
		t.Errorf("group fallback = %q, want title", got)
	}
}

func TestConversation_JSONRoundTrip(t *testing.T) {
	c, err := NewConversationWithMembers(uuid.New(), uuid.New(), "team", time.Now().UTC(), []string{"Justin", "Vasu"}, ConversationGroup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := DecodeConversation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.ID != c.ID || decoded.Title != c.Title || decoded.Type != c.Type {
		t.Errorf("decoded %+v does not match original", decoded)
	}
	assertMembers(t, decoded, "Justin", "Vasu")
}

func TestDirectPairKey_OrderIndependent(t *testing.T) {
	if DirectPairKey("Justin", "Vasu") != DirectPairKey("Vasu", "Justin") {
		t.Fatal("pair key depends on argument order")
	}
	if DirectPairKey("ab", "c") == DirectPairKey("a", "bc") {
		t.Fatal("pair key is ambiguous")
	}
}

func assertMembers(t *testing.T, c *Conversation, want ...string) {
	t.Helper()
	got := c.Members()
	if len(got) != len(want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("members = %v, want %v", got, want)
		}
	}
}
