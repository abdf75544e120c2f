package session

import (
	"context"
	"errors"
)

// Store persists sessions, their message logs and collections.
type Store interface {
	// GetSession returns ErrNotFound when no metadata record exists.
	GetSession(ctx context.Context, id string) (*Session, error)
	// ClaimSession creates the metadata record when none exists and returns
	// the stored record either way. The owner of an existing record is never
	// changed.
	ClaimSession(ctx context.Context, meta *Session) (*Session, error)
	// ListSessions returns the sessions owned by ownerID, newest first.
	ListSessions(ctx context.Context, ownerID string) ([]*Session, error)

	// AppendMessage appends one message to the session log.
	AppendMessage(ctx context.Context, msg *Message) error
	// RecordReply appends the assistant reply and upserts the session
	// metadata (merge, last write wins) in one write.
	RecordReply(ctx context.Context, meta *Session, reply *Message) error
	// ListMessages returns the last limit messages (all if limit <= 0) in
	// insertion order.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	CreateCollection(ctx context.Context, c *Collection) error
	ListCollections(ctx context.Context, ownerID string) ([]*Collection, error)

	Close() error
}

// PairTurns groups messages by TurnID and keeps only complete user/assistant
// pairs, in the order the user messages were written. A user message whose
// turn failed before a reply is skipped.
func PairTurns(msgs []*Message) []Turn {
	index := make(map[string]int)
	var turns []Turn
	var complete []bool
	for _, m := range msgs {
		if m.TurnID == "" {
			continue
		}
		i, ok := index[m.TurnID]
		if !ok {
			if m.Role != RoleUser {
				continue
			}
			index[m.TurnID] = len(turns)
			turns = append(turns, Turn{TurnID: m.TurnID, User: m.Content})
			complete = append(complete, false)
			continue
		}
		if m.Role == RoleAssistant {
			turns[i].Assistant = m.Content
			complete[i] = true
		}
	}

	out := make([]Turn, 0, len(turns))
	for i, t := range turns {
		if complete[i] {
			out = append(out, t)
		}
	}
	return out
}

// RecentTurns loads the last limit complete turns of a session. Orphaned
// user messages occupy slots in the log, so the read window doubles until it
// holds limit complete turns or covers the whole log.
func RecentTurns(ctx context.Context, s Store, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	window := limit*2 + 2
	for {
		msgs, err := s.ListMessages(ctx, sessionID, window)
		if err != nil {
			return nil, err
		}
		turns := PairTurns(msgs)
		if len(turns) >= limit {
			return turns[len(turns)-limit:], nil
		}
		if len(msgs) < window {
			return turns, nil
		}
		window *= 2
	}
}

// Authorize returns the session if principal owns it and, when tag is
// non-nil, the tag matches. Any mismatch or a missing session is
// ErrAccessDenied.
func Authorize(ctx context.Context, s Store, sessionID, principal string, tag *string) (*Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != principal {
		return nil, ErrAccessDenied
	}
	if tag != nil && sess.Tag != *tag {
		return nil, ErrAccessDenied
	}
	return sess, nil
}

// History returns the full ordered message log of a session the principal
// may read.
func History(ctx context.Context, s Store, sessionID, principal string, tag *string) ([]*Message, error) {
	if _, err := Authorize(ctx, s, sessionID, principal, tag); err != nil {
		return nil, err
	}
	return s.ListMessages(ctx, sessionID, 0)
}
