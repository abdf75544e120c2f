package session

import (
	"errors"
	"time"
)

// DefaultTag is applied when a turn does not specify one.
const DefaultTag = "general"

// GuestOwner is the pseudo-identity used for unauthenticated callers.
const GuestOwner = "guest"

var (
	// ErrNotFound is returned by stores for a missing session.
	ErrNotFound = errors.New("session not found")
	// ErrAccessDenied deliberately does not distinguish a missing session from
	// one owned by someone else.
	ErrAccessDenied = errors.New("not found or access denied")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is the metadata record of a conversation thread.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Tag       string    `json:"tag"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one utterance in a session. Messages of the same turn share TurnID.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Collection is a user-defined named and colored grouping.
type Collection struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is a user message paired with the assistant reply of the same turn.
type Turn struct {
	TurnID    string
	User      string
	Assistant string
}
