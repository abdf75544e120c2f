package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps everything in process. Used for tests, the local REPL and
// the "memory" storage backend.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	messages    map[string][]*Message
	collections []*Collection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		messages: make(map[string][]*Message),
	}
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) ClaimSession(_ context.Context, meta *Session) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[meta.ID]
	if !ok {
		m := *meta
		s.sessions[meta.ID] = &m
		sess = &m
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) ListSessions(_ context.Context, ownerID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if sess.OwnerID == ownerID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], &cp)
	return nil
}

func (s *MemoryStore) RecordReply(_ context.Context, meta *Session, reply *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *reply
	s.messages[reply.SessionID] = append(s.messages[reply.SessionID], &cp)
	m := *meta
	s.sessions[meta.ID] = &m
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, sessionID string, limit int) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, c *Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.collections = append(s.collections, &cp)
	return nil
}

func (s *MemoryStore) ListCollections(_ context.Context, ownerID string) ([]*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Collection
	for _, c := range s.collections {
		if c.OwnerID == ownerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
