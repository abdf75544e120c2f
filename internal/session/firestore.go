package session

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps session metadata in "sessions", message logs in
// "chat_history/{session}/messages" and collections in "collections".
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store for projectID.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *FirestoreStore) messagesCol(sessionID string) *firestore.CollectionRef {
	return s.client.Collection("chat_history").Doc(sessionID).Collection("messages")
}

func (s *FirestoreStore) collectionsCol() *firestore.CollectionRef {
	return s.client.Collection("collections")
}

type sessionDoc struct {
	UserID    string    `firestore:"user_id"`
	Tag       string    `firestore:"tag"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	TurnID    string    `firestore:"turn_id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"timestamp"`
}

type collectionDoc struct {
	UserID    string    `firestore:"user_id"`
	Name      string    `firestore:"name"`
	Color     string    `firestore:"color"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toMessageDoc(m *Message) messageDoc {
	return messageDoc{
		TurnID:    m.TurnID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func (s *FirestoreStore) GetSession(ctx context.Context, id string) (*Session, error) {
	snap, err := s.sessionsCol().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}
	return &Session{ID: id, OwnerID: doc.UserID, Tag: doc.Tag, UpdatedAt: doc.UpdatedAt}, nil
}

func (s *FirestoreStore) ClaimSession(ctx context.Context, meta *Session) (*Session, error) {
	ref := s.sessionsCol().Doc(meta.ID)
	var out *Session
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			cp := *meta
			out = &cp
			return tx.Create(ref, sessionDoc{UserID: meta.OwnerID, Tag: meta.Tag, UpdatedAt: meta.UpdatedAt})
		}
		if err != nil {
			return err
		}
		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		out = &Session{ID: meta.ID, OwnerID: doc.UserID, Tag: doc.Tag, UpdatedAt: doc.UpdatedAt}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("firestore ClaimSession: %w", err)
	}
	return out, nil
}

func (s *FirestoreStore) ListSessions(ctx context.Context, ownerID string) ([]*Session, error) {
	iter := s.sessionsCol().Where("user_id", "==", ownerID).OrderBy("updated_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []*Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessions: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}
		out = append(out, &Session{ID: snap.Ref.ID, OwnerID: doc.UserID, Tag: doc.Tag, UpdatedAt: doc.UpdatedAt})
	}
	return out, nil
}

func (s *FirestoreStore) AppendMessage(ctx context.Context, msg *Message) error {
	if _, err := s.messagesCol(msg.SessionID).Doc(msg.ID).Set(ctx, toMessageDoc(msg)); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

func (s *FirestoreStore) RecordReply(ctx context.Context, meta *Session, reply *Message) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(s.messagesCol(reply.SessionID).Doc(reply.ID), toMessageDoc(reply)); err != nil {
			return err
		}
		return tx.Set(s.sessionsCol().Doc(meta.ID), map[string]interface{}{
			"user_id":    meta.OwnerID,
			"tag":        meta.Tag,
			"updated_at": meta.UpdatedAt,
		}, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("firestore RecordReply: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	q := s.messagesCol(sessionID).OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListMessages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		out = append(out, &Message{
			ID:        snap.Ref.ID,
			SessionID: sessionID,
			TurnID:    doc.TurnID,
			Role:      Role(doc.Role),
			Content:   doc.Content,
			CreatedAt: doc.CreatedAt,
		})
	}

	// newest first from the query, oldest first to callers
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *FirestoreStore) CreateCollection(ctx context.Context, c *Collection) error {
	doc := collectionDoc{UserID: c.OwnerID, Name: c.Name, Color: c.Color, CreatedAt: c.CreatedAt}
	if _, err := s.collectionsCol().Doc(c.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateCollection: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListCollections(ctx context.Context, ownerID string) ([]*Collection, error) {
	iter := s.collectionsCol().Where("user_id", "==", ownerID).Documents(ctx)
	defer iter.Stop()

	var out []*Collection
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListCollections: %w", err)
		}

		var doc collectionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode collectionDoc: %w", err)
		}
		out = append(out, &Collection{
			ID:        snap.Ref.ID,
			OwnerID:   doc.UserID,
			Name:      doc.Name,
			Color:     doc.Color,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
